// Package rtp sends encoded video to a remote peer over RTP/UDP and handles
// the RTCP feedback it sends back.
package rtp

import (
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"golang.org/x/net/ipv4"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/mediastream/internal/codec"
	"github.com/lanikai/mediastream/internal/media"
	"github.com/lanikai/mediastream/internal/packet"
)

const (
	defaultMTU                  = 1200
	defaultSenderReportInterval = 5 * time.Second

	// Sent packets kept for retransmission on NACK.
	historySize = 512

	// Seconds between the NTP epoch (1900) and the Unix epoch (1970).
	ntpEpochOffset = 2208988800
)

type Config struct {
	// Maximum RTP packet size.
	MTU int

	// DiffServ code point for outgoing packets, e.g. 46 (EF). Zero leaves
	// the socket default.
	DSCP int

	SenderReportInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.MTU <= 0 {
		c.MTU = defaultMTU
	}
	if c.SenderReportInterval <= 0 {
		c.SenderReportInterval = defaultSenderReportInterval
	}
}

// Sender packetizes encoded frames for one codec and sends them to a single
// UDP destination. RTCP is multiplexed on the same port (RFC 5761).
type Sender struct {
	conn       *net.UDPConn
	codec      *codec.Codec
	ssrc       uint32
	packetizer rtp.Packetizer

	mu          sync.Mutex
	base        uint32 // RTP timestamp of presentation time zero
	lastRTP     uint32
	lastWall    time.Time
	packetCount uint32
	octetCount  uint32
	history     [historySize][]byte
	onKeyFrame  func()

	quit chan struct{}
	wg   sync.WaitGroup
}

// Dial starts an RTP session towards addr ("host:port").
func Dial(addr string, c *codec.Codec, cfg Config) (*Sender, error) {
	cfg.setDefaults()

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}

	if cfg.DSCP != 0 {
		if err := ipv4.NewConn(conn).SetTOS(cfg.DSCP << 2); err != nil {
			log.Warn("Cannot set DSCP %d on %s: %v", cfg.DSCP, addr, err)
		}
	}

	ssrc := uuid.New().ID()
	s := &Sender{
		conn:  conn,
		codec: c,
		ssrc:  ssrc,
		packetizer: rtp.NewPacketizer(uint16(cfg.MTU), c.PayloadType, ssrc,
			c.NewPayloader(), rtp.NewRandomSequencer(), c.ClockRate),
		base: uuid.New().ID(),
		quit: make(chan struct{}),
	}
	log.Info("RTP %s to %s, SSRC %08x, payload type %d", c.MimeType, raddr, ssrc, c.PayloadType)

	s.wg.Add(2)
	go s.readLoop()
	go s.reportLoop(cfg.SenderReportInterval)
	return s, nil
}

// SSRC identifies the stream.
func (s *Sender) SSRC() uint32 {
	return s.ssrc
}

// LocalAddr is where RTCP feedback is expected.
func (s *Sender) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// OnKeyFrameRequest sets a callback for PLI and FIR feedback.
func (s *Sender) OnKeyFrameRequest(f func()) {
	s.mu.Lock()
	s.onKeyFrame = f
	s.mu.Unlock()
}

func (s *Sender) rtpTime(pts time.Duration) uint32 {
	return s.base + uint32(int64(pts)*int64(s.codec.ClockRate)/int64(time.Second))
}

// WritePacket sends one encoded frame as one or more RTP packets. All packets
// share the frame's timestamp; the last one carries the marker bit.
func (s *Sender) WritePacket(p *media.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.rtpTime(p.Timestamp)
	for _, pkt := range s.packetizer.Packetize(p.Data, 0) {
		pkt.Timestamp = ts
		buf, err := pkt.Marshal()
		if err != nil {
			return errors.Errorf("marshal RTP packet: %w", err)
		}
		s.history[pkt.SequenceNumber%historySize] = buf
		if _, err := s.conn.Write(buf); err != nil {
			return errors.Errorf("send RTP packet: %w", err)
		}
		s.packetCount++
		s.octetCount += uint32(len(pkt.Payload))
	}
	s.lastRTP = ts
	s.lastWall = time.Now()
	return nil
}

func (s *Sender) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, 1500)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// ICMP port unreachable shows up here while nobody listens.
			log.Trace(3, "RTCP read: %v", err)
			continue
		}
		if err := s.handleRTCP(buf[:n]); err != nil {
			log.Debug("Bad RTCP packet: %v", err)
		}
	}
}

func (s *Sender) handleRTCP(buf []byte) error {
	if rtcp, err := isRTCP(buf); err != nil {
		return err
	} else if !rtcp {
		return errors.New("not an RTCP packet")
	}

	var cp rtcpCompoundPacket
	if err := cp.readFrom(packet.NewReader(buf)); err != nil {
		return err
	}

	for _, p := range cp.packets {
		switch p := p.(type) {
		case *RTCPReceiverReport:
			for _, r := range p.Reports {
				if r.Source == s.ssrc {
					log.Debug("Receiver %08x: %.1f%% lost, jitter %d", p.Sender, 100*r.FractionLost, r.Jitter)
				}
			}
		case *pliFeedbackMessage:
			s.requestKeyFrame("PLI")
		case *firFeedbackMessage:
			s.requestKeyFrame("FIR")
		case *nackFeedbackMessage:
			s.retransmit(p.getLostPackets())
		}
	}
	return nil
}

func (s *Sender) requestKeyFrame(why string) {
	s.mu.Lock()
	f := s.onKeyFrame
	s.mu.Unlock()

	log.Debug("Key frame requested (%s)", why)
	if f != nil {
		f()
	}
}

func (s *Sender) retransmit(seqs []uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seq := range seqs {
		buf := s.history[seq%historySize]
		if len(buf) < 4 || uint16(buf[2])<<8|uint16(buf[3]) != seq {
			log.Debug("NACK for %d: no longer available", seq)
			continue
		}
		if _, err := s.conn.Write(buf); err != nil {
			log.Debug("Retransmit %d: %v", seq, err)
		}
	}
}

func (s *Sender) reportLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			if err := s.sendReport(); err != nil {
				log.Debug("Sender report: %v", err)
			}
		}
	}
}

func (s *Sender) senderReport(now time.Time) *RTCPSenderReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	rtpTime := s.lastRTP
	if !s.lastWall.IsZero() {
		rtpTime += uint32(int64(now.Sub(s.lastWall)) * int64(s.codec.ClockRate) / int64(time.Second))
	}
	return &RTCPSenderReport{
		Sender:      s.ssrc,
		NTPTime:     ntpTime(now),
		RTPTime:     rtpTime,
		PacketCount: s.packetCount,
		OctetCount:  s.octetCount,
	}
}

func (s *Sender) sendReport() error {
	w := packet.NewWriterSize(rtcpHeaderSize + 4*6)
	if err := s.senderReport(time.Now()).writeTo(w); err != nil {
		return err
	}
	_, err := s.conn.Write(w.Bytes())
	return err
}

// ntpTime converts t to a 64-bit NTP timestamp (32.32 fixed point seconds).
func ntpTime(t time.Time) uint64 {
	secs := uint64(t.Unix()) + ntpEpochOffset
	frac := uint64(t.Nanosecond()) << 32 / uint64(time.Second)
	return secs<<32 | frac
}

func (s *Sender) Close() error {
	close(s.quit)
	err := s.conn.Close()
	s.wg.Wait()
	return err
}

// Open an RTP sink from a URL such as rtp://239.0.0.1:5004?dscp=46&mtu=1400.
func open(target string, info media.StreamInfo) (media.Sink, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if info.Codec == nil {
		return nil, errors.New("rtp: no codec")
	}

	var cfg Config
	q := u.Query()
	if v := q.Get("mtu"); v != "" {
		if cfg.MTU, err = strconv.Atoi(v); err != nil {
			return nil, errors.Errorf("rtp: bad mtu %q", v)
		}
	}
	if v := q.Get("dscp"); v != "" {
		if cfg.DSCP, err = strconv.Atoi(v); err != nil || cfg.DSCP < 0 || cfg.DSCP > 63 {
			return nil, errors.Errorf("rtp: bad dscp %q", v)
		}
	}
	return Dial(u.Host, info.Codec, cfg)
}

func init() {
	media.RegisterSinkType("rtp", open)
}

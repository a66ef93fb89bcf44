// Package pipeline captures, encodes and distributes video.
//
//	capture.Session -> video.Decode -> codec.VideoEncoder -> media.Flow -> sinks
package pipeline

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/capture"
	"github.com/lanikai/mediastream/internal/codec"
	"github.com/lanikai/mediastream/internal/logging"
	"github.com/lanikai/mediastream/internal/media"
	"github.com/lanikai/mediastream/internal/video"
)

var log = logging.DefaultLogger.WithTag("pipeline")

const defaultQueueSize = 30

type Config struct {
	// Target bitrate in bits per second.
	Bitrate int

	// Force a key frame every so many encoded frames. Zero leaves it to the
	// encoder.
	KeyFrameInterval int

	// Packets queued per sink before the oldest are dropped.
	QueueSize int
}

// Stats are cumulative pipeline counters.
type Stats struct {
	Captured  uint64 `json:"captured"` // frames written by the capture device
	Missed    uint64 `json:"missed"`   // captured frames replaced before the encoder saw them
	Encoded   uint64 `json:"encoded"`  // frames that produced output
	Skipped   uint64 `json:"skipped"`  // frames the encoder chose to skip
	Failed    uint64 `json:"failed"`   // frames that could not be decoded or encoded
	KeyFrames uint64 `json:"keyFrames"`
	Bytes     uint64 `json:"bytes"`   // encoded bytes
	Dropped   uint64 `json:"dropped"` // packets discarded for slow sinks
}

type Pipeline struct {
	cfg     Config
	session *capture.Session
	codec   *codec.Codec
	params  codec.Params
	enc     codec.VideoEncoder

	flow  media.Flow
	sinks sync.WaitGroup

	frameBuf     []byte
	sinceKey     int
	keyRequested int32

	missed, encoded, skipped, failed, keyFrames, bytes uint64
}

// New creates an encoder for the session's negotiated format.
func New(session *capture.Session, c *codec.Codec, cfg Config) (*Pipeline, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	prop := session.Property()
	params := codec.Params{
		Width:            prop.Width,
		Height:           prop.Height,
		Bitrate:          cfg.Bitrate,
		FrameRate:        prop.FrameRate,
		KeyFrameInterval: cfg.KeyFrameInterval,
	}
	enc, err := c.NewEncoder(params)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:      cfg,
		session:  session,
		codec:    c,
		params:   params,
		enc:      enc,
		frameBuf: make([]byte, params.MaxFrameSize()),
	}, nil
}

func (p *Pipeline) Session() *capture.Session {
	return p.session
}

func (p *Pipeline) Codec() *codec.Codec {
	return p.codec
}

// StreamInfo describes the encoded stream to sinks.
func (p *Pipeline) StreamInfo() media.StreamInfo {
	return media.StreamInfo{
		Codec:     p.codec,
		Width:     p.params.Width,
		Height:    p.params.Height,
		FrameRate: p.params.FrameRate,
	}
}

// Run captures and encodes until ctx is done or capture ends.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.session.Start(); err != nil {
		return err
	}
	defer p.session.Stop()

	var last uint64
	for {
		buf, err := p.session.NextSample(ctx, last)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF), errors.Is(err, capture.ErrStopped):
			log.Info("Capture ended after %d frames", last)
			return nil
		default:
			return err
		}

		if last != 0 && buf.Sequence > last+1 {
			atomic.AddUint64(&p.missed, buf.Sequence-last-1)
		}
		last = buf.Sequence

		if err := p.encode(buf); err != nil {
			atomic.AddUint64(&p.failed, 1)
			log.Warn("Frame %d: %v", buf.Sequence, err)
		}
		buf.Release()
	}
}

func (p *Pipeline) encode(buf *capture.SampleBuffer) error {
	prop := p.session.Property()
	img, release, err := video.Decode(prop.PixelFormat, buf.Bytes(), prop.Width, prop.Height)
	if err != nil {
		return err
	}
	defer release()

	force := atomic.SwapInt32(&p.keyRequested, 0) == 1
	if n := p.cfg.KeyFrameInterval; n > 0 && p.sinceKey >= n {
		force = true
	}
	if force {
		if err := p.enc.ForceIntraFrame(); err != nil {
			log.Warn("Cannot force key frame: %v", err)
		}
	}

	n, err := p.enc.EncodeFrame(p.frameBuf, img)
	if err != nil {
		return err
	}
	if n == 0 {
		atomic.AddUint64(&p.skipped, 1)
		return nil
	}

	data := make([]byte, n)
	copy(data, p.frameBuf[:n])
	pkt := &media.Packet{
		Data:      data,
		Timestamp: buf.Timestamp,
		KeyFrame:  p.codec.IsKeyFrame(data),
		Sequence:  buf.Sequence,
	}
	if pkt.KeyFrame {
		atomic.AddUint64(&p.keyFrames, 1)
		p.sinceKey = 0
	}
	p.sinceKey++
	atomic.AddUint64(&p.encoded, 1)
	atomic.AddUint64(&p.bytes, uint64(n))

	log.Trace(5, "frame %d: %d bytes, key=%v", buf.Sequence, n, pkt.KeyFrame)
	p.flow.Put(pkt)
	return nil
}

// RequestKeyFrame makes the next encoded frame a key frame.
func (p *Pipeline) RequestKeyFrame() {
	atomic.StoreInt32(&p.keyRequested, 1)
}

// Subscribe returns a channel of encoded packets. A key frame is requested so
// the new subscriber can start decoding promptly.
func (p *Pipeline) Subscribe(capacity int) <-chan *media.Packet {
	if capacity <= 0 {
		capacity = p.cfg.QueueSize
	}
	ch := p.flow.Subscribe(capacity)
	p.RequestKeyFrame()
	return ch
}

func (p *Pipeline) Unsubscribe(ch <-chan *media.Packet) error {
	return p.flow.Unsubscribe(ch)
}

// AddSink feeds encoded packets to sink until the pipeline is closed, which
// also closes the sink.
func (p *Pipeline) AddSink(sink media.Sink) {
	if kr, ok := sink.(media.KeyFrameRequester); ok {
		kr.OnKeyFrameRequest(p.RequestKeyFrame)
	}
	ch := p.Subscribe(0)
	p.sinks.Add(1)
	go func() {
		defer p.sinks.Done()
		if err := media.Pump(ch, sink); err != nil {
			log.Warn("Closing sink: %v", err)
		}
	}()
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Captured:  p.session.Stats().Frames,
		Missed:    atomic.LoadUint64(&p.missed),
		Encoded:   atomic.LoadUint64(&p.encoded),
		Skipped:   atomic.LoadUint64(&p.skipped),
		Failed:    atomic.LoadUint64(&p.failed),
		KeyFrames: atomic.LoadUint64(&p.keyFrames),
		Bytes:     atomic.LoadUint64(&p.bytes),
		Dropped:   p.flow.Dropped(),
	}
}

// Close ends all subscriptions, waits for sinks to close and releases the
// encoder. It must not be called while Run is active.
func (p *Pipeline) Close() error {
	p.flow.Close()
	p.sinks.Wait()
	return p.enc.Close()
}

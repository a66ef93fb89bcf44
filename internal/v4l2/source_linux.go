//go:build linux
// +build linux

package v4l2

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lanikai/mediastream/internal/capture"
	"github.com/lanikai/mediastream/internal/logging"
)

var log = logging.DefaultLogger.WithTag("v4l2")

// How long a single poll for a frame may block before checking for Stop.
const pollTimeout = 100 * time.Millisecond

// Source is a capture.Device backed by a V4L2 video device.
type Source struct {
	cfg Config
	dev *device
	p   capture.VideoProperty

	// Frames are copied out of the kernel buffers into pooled memory, so a
	// sample may outlive the mapping it came from.
	pool sync.Pool

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

// Open a V4L2 video device (usually /dev/video0).
func Open(devpath string, cfg Config) (*Source, error) {
	dev, err := openDevice(devpath)
	if err != nil {
		return nil, err
	}

	card, err := dev.queryCapabilities()
	if err != nil {
		unix.Close(dev.fd)
		return nil, err
	}
	log.Info("Opened %s (%s)", devpath, card)

	if cfg.NumBuffers <= 0 {
		cfg.NumBuffers = 4
	}
	if cfg.HFlip {
		if err := dev.setControl(V4L2_CID_HFLIP, 1); err != nil {
			log.Warn("%s: cannot flip horizontally: %v", devpath, err)
		}
	}
	if cfg.VFlip {
		if err := dev.setControl(V4L2_CID_VFLIP, 1); err != nil {
			log.Warn("%s: cannot flip vertically: %v", devpath, err)
		}
	}

	return &Source{cfg: cfg, dev: dev}, nil
}

func (s *Source) Configure(p capture.VideoProperty) (capture.VideoProperty, error) {
	if p.Width == 0 {
		p.Width = 1280
	}
	if p.Height == 0 {
		p.Height = 720
	}

	pix, err := s.dev.setPixelFormat(uint32(p.Width), uint32(p.Height), uint32(p.PixelFormat))
	if err != nil {
		return p, errors.Wrapf(err, "%s: set format %v", s.dev.path, p)
	}
	p.Width = int(pix.width)
	p.Height = int(pix.height)
	p.PixelFormat = fourcc(pix.pixelformat)

	if p.FrameRate, err = s.dev.setFrameRate(p.FrameRate); err != nil {
		return p, errors.Wrapf(err, "%s: set frame rate", s.dev.path)
	}

	size := int(pix.sizeimage)
	if size == 0 {
		size = p.BufferSize()
	}
	s.pool.New = func() interface{} {
		b := make([]byte, size)
		return &b
	}
	s.p = p
	return p, nil
}

func (s *Source) Start(out capture.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quit != nil {
		return errors.New("v4l2: already started")
	}
	if err := s.dev.start(s.cfg.NumBuffers); err != nil {
		return err
	}

	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go s.readLoop(out, s.quit, s.done)
	return nil
}

func (s *Source) readLoop(out capture.Output, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var start time.Time
	fds := []unix.PollFd{{Fd: int32(s.dev.fd), Events: unix.POLLIN}}
	for {
		select {
		case <-quit:
			return
		default:
		}

		n, err := unix.Poll(fds, int(pollTimeout/time.Millisecond))
		if err == unix.EINTR || n == 0 {
			continue
		}
		if err != nil {
			out.Fail(errors.Wrap(err, "poll"))
			return
		}

		bp := s.pool.Get().(*[]byte)
		size, err := s.dev.readFrame(*bp)
		if err != nil {
			s.pool.Put(bp)
			out.Fail(err)
			return
		}

		now := time.Now()
		if start.IsZero() {
			start = now
		}
		log.Trace(5, "frame: %d bytes", size)
		out.WriteSample(capture.NewSampleBuffer((*bp)[:size], now.Sub(start), func() { s.pool.Put(bp) }))
	}
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quit == nil {
		return nil
	}
	close(s.quit)
	<-s.done
	s.quit, s.done = nil, nil

	return s.dev.stop()
}

func (s *Source) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	return s.dev.Close()
}

// Package capture receives raw video frames from a platform capture device.
//
// A Session ties a Device to the application. The device writes samples to
// the session from its own goroutine; the session keeps the most recent one
// and hands it out to readers and to an optional Delegate. All session state
// sits behind a single lock that is only taken inside Session methods.
package capture

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/logging"
)

var log = logging.DefaultLogger.WithTag("capture")

// Session is a synchronized capture session descriptor.
type Session struct {
	// Identifies this session in log messages.
	ID uuid.UUID

	mu sync.Mutex

	// Immutable after NewSession.
	property VideoProperty

	device   Device
	delegate Delegate

	// Latest sample. The session holds one reference on it.
	buffer *SampleBuffer
	seq    uint64

	// Closed (and replaced) whenever buffer or the run state changes.
	ready chan struct{}

	running bool
	closed  bool
	err     error

	stats Stats
}

// Stats are cumulative session counters.
type Stats struct {
	Frames uint64 // samples written by the device
	Bytes  uint64 // total sample bytes
}

// NewSession configures dev with the requested property and returns a session
// that has not yet started. delegate may be nil.
func NewSession(dev Device, p VideoProperty, delegate Delegate) (*Session, error) {
	negotiated, err := dev.Configure(p)
	if err != nil {
		return nil, errors.Wrapf(err, "configure %v", p)
	}

	s := &Session{
		ID:       uuid.New(),
		property: negotiated,
		device:   dev,
		delegate: delegate,
		ready:    make(chan struct{}),
	}
	log.Info("Session %s: %v", s.ID, negotiated)
	return s, nil
}

// Property returns the negotiated capture format.
func (s *Session) Property() VideoProperty {
	return s.property
}

// BufferSize is the number of bytes needed to hold one raw frame.
func (s *Session) BufferSize() int {
	return s.property.BufferSize()
}

// SetDelegate replaces the session delegate. Samples already being delivered
// may still reach the previous delegate.
func (s *Session) SetDelegate(d Delegate) {
	s.mu.Lock()
	s.delegate = d
	s.mu.Unlock()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Start starts the device. Starting a running session does nothing.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.err = nil
	s.mu.Unlock()

	// The device may write samples before Start returns, so the lock must not
	// be held here.
	if err := s.device.Start(s); err != nil {
		s.mu.Lock()
		s.running = false
		s.notify()
		s.mu.Unlock()
		return errors.Wrap(err, "start capture")
	}
	log.Debug("Session %s started", s.ID)
	return nil
}

// Stop stops the device. The latest sample stays available.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.notify()
	s.mu.Unlock()

	log.Debug("Session %s stopped", s.ID)
	return s.device.Stop()
}

// Close stops capture, releases the latest sample and closes the device.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	running := s.running
	s.running = false
	buf := s.buffer
	s.buffer = nil
	s.notify()
	s.mu.Unlock()

	var err error
	if running {
		err = s.device.Stop()
	}
	buf.Release()
	if cerr := s.device.Close(); err == nil {
		err = cerr
	}
	log.Debug("Session %s closed", s.ID)
	return err
}

// WriteSample implements Output. The new sample replaces the latest one, whose
// reference is released.
func (s *Session) WriteSample(buf *SampleBuffer) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		buf.Release()
		return
	}
	s.seq++
	buf.Sequence = s.seq
	prev := s.buffer
	s.buffer = buf
	s.stats.Frames++
	s.stats.Bytes += uint64(buf.Len())
	s.notify()
	delegate := s.delegate
	// Keep buf alive while the delegate runs, even if Close races with us.
	buf.Hold()
	s.mu.Unlock()

	prev.Release()
	if delegate != nil {
		delegate.CaptureOutput(s, buf)
	}
	buf.Release()
}

// Fail implements Output. The device reports that it can deliver no more
// samples; waiting readers get err.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	log.Error("Session %s: capture failed: %v", s.ID, err)
	s.running = false
	s.err = err
	s.notify()
}

// Latest returns the most recent sample with an extra reference, which the
// caller must release.
func (s *Session) Latest() (*SampleBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.buffer == nil {
		return nil, ErrNoFrame
	}
	s.buffer.Hold()
	return s.buffer, nil
}

// NextSample waits for a sample with a sequence number greater than after,
// and returns it with an extra reference, which the caller must release.
func (s *Session) NextSample(ctx context.Context, after uint64) (*SampleBuffer, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		if buf := s.buffer; buf != nil && buf.Sequence > after {
			buf.Hold()
			s.mu.Unlock()
			return buf, nil
		}
		if !s.running {
			err := s.err
			s.mu.Unlock()
			if err == nil {
				err = ErrStopped
			}
			return nil, err
		}
		ready := s.ready
		s.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ReadVideoFrame waits for the next sample and copies it into dst. If dst is
// too small, the frame is truncated and io.ErrShortBuffer is returned.
func (s *Session) ReadVideoFrame(ctx context.Context, dst []byte) (int, error) {
	s.mu.Lock()
	after := s.seq
	s.mu.Unlock()

	buf, err := s.NextSample(ctx, after)
	if err != nil {
		return 0, err
	}
	defer buf.Release()

	n := copy(dst, buf.Bytes())
	if n < buf.Len() {
		return n, io.ErrShortBuffer
	}
	return n, nil
}

// Wake everyone waiting in NextSample. Must be called with mu held.
func (s *Session) notify() {
	close(s.ready)
	s.ready = make(chan struct{})
}

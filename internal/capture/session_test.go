package capture

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/mediastream/internal/format"
)

// manualDevice delivers samples only when the test asks it to.
type manualDevice struct {
	out     Output
	started int
	stopped int
	closed  int
}

func (d *manualDevice) Configure(p VideoProperty) (VideoProperty, error) {
	p.FrameRate = 25
	return p, nil
}

func (d *manualDevice) Start(out Output) error { d.out = out; d.started++; return nil }
func (d *manualDevice) Stop() error            { d.stopped++; return nil }
func (d *manualDevice) Close() error           { d.closed++; return nil }

// Write a sample whose release increments *released.
func (d *manualDevice) write(data []byte, released *int32) {
	d.out.WriteSample(NewSampleBuffer(data, 0, func() { atomic.AddInt32(released, 1) }))
}

func newManualSession(t *testing.T, delegate Delegate) (*Session, *manualDevice) {
	dev := &manualDevice{}
	i420, _ := format.I420.FourCC()
	s, err := NewSession(dev, VideoProperty{PixelFormat: i420, Width: 4, Height: 2}, delegate)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	return s, dev
}

func TestSessionNegotiatedProperty(t *testing.T) {
	s, _ := newManualSession(t, nil)
	defer s.Close()

	p := s.Property()
	assert.Equal(t, 25.0, p.FrameRate)
	assert.Equal(t, 12, s.BufferSize())
}

func TestSessionReleasesReplacedSample(t *testing.T) {
	s, dev := newManualSession(t, nil)

	var first, second int32
	dev.write([]byte{1}, &first)
	assert.EqualValues(t, 0, first, "latest sample must stay held")

	dev.write([]byte{2}, &second)
	assert.EqualValues(t, 1, first, "replaced sample must be released")
	assert.EqualValues(t, 0, second)

	buf, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, buf.Bytes())
	assert.EqualValues(t, 2, buf.Sequence)

	// A holder keeps the sample alive across Close.
	require.NoError(t, s.Close())
	assert.EqualValues(t, 0, second)
	buf.Release()
	assert.EqualValues(t, 1, second)

	assert.Equal(t, 1, dev.stopped)
	assert.Equal(t, 1, dev.closed)
	assert.Equal(t, Stats{Frames: 2, Bytes: 2}, s.Stats())
}

func TestSessionDropsSamplesWhenStopped(t *testing.T) {
	s, dev := newManualSession(t, nil)
	defer s.Close()

	require.NoError(t, s.Stop())
	var released int32
	dev.write([]byte{1}, &released)
	assert.EqualValues(t, 1, released)

	_, err := s.Latest()
	assert.Equal(t, ErrNoFrame, err)
}

func TestSessionDelegate(t *testing.T) {
	var got []byte
	delegate := DelegateFunc(func(s *Session, buf *SampleBuffer) {
		got = append(got, buf.Bytes()...)
	})
	s, dev := newManualSession(t, delegate)
	defer s.Close()

	var released int32
	dev.write([]byte{7}, &released)
	dev.write([]byte{8}, &released)
	assert.Equal(t, []byte{7, 8}, got)
}

func TestReadVideoFrameWaitsForNextSample(t *testing.T) {
	s, dev := newManualSession(t, nil)
	defer s.Close()

	var released int32
	dev.write([]byte{1, 1, 1}, &released)

	done := make(chan struct{})
	dst := make([]byte, 8)
	var n int
	var err error
	go func() {
		defer close(done)
		n, err = s.ReadVideoFrame(context.Background(), dst)
	}()

	// The sample already present must not satisfy the read.
	select {
	case <-done:
		t.Fatal("ReadVideoFrame returned before a new sample arrived")
	case <-time.After(20 * time.Millisecond):
	}

	dev.write([]byte{2, 2}, &released)
	<-done
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{2, 2}, dst[:n])
}

func TestReadVideoFrameShortBuffer(t *testing.T) {
	s, dev := newManualSession(t, nil)
	defer s.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		var released int32
		dev.write([]byte{1, 2, 3}, &released)
	}()
	dst := make([]byte, 2)
	n, err := s.ReadVideoFrame(context.Background(), dst)
	assert.Equal(t, io.ErrShortBuffer, err)
	assert.Equal(t, 2, n)
}

func TestReadVideoFrameHonorsContext(t *testing.T) {
	s, _ := newManualSession(t, nil)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.ReadVideoFrame(ctx, make([]byte, 8))
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestNextSampleReportsDeviceFailure(t *testing.T) {
	s, dev := newManualSession(t, nil)
	defer s.Close()

	dev.out.Fail(io.EOF)
	_, err := s.NextSample(context.Background(), 0)
	assert.Equal(t, io.EOF, err)
}

func TestSessionClosed(t *testing.T) {
	s, _ := newManualSession(t, nil)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, ErrClosed, s.Start())
	_, err := s.NextSample(context.Background(), 0)
	assert.Equal(t, ErrClosed, err)
}

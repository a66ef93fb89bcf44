package capture

import (
	"sync/atomic"
	"time"
)

/*
A SampleBuffer holds one captured video frame. It may be read concurrently from
multiple goroutines, and is reference counted: Hold() adds a reference,
Release() drops one, and the release function runs when the last reference is
dropped. After that the bytes may be reused by the device that produced them.

A Session keeps one reference on its latest sample. Consumers that need a
sample beyond the call in which they received it must Hold() it:

	func (d *myDelegate) CaptureOutput(s *capture.Session, buf *capture.SampleBuffer) {
		buf.Hold()
		go func() {
			defer buf.Release()
			process(buf.Bytes())
		}()
	}
*/
type SampleBuffer struct {
	data []byte

	// Presentation time, relative to the start of capture.
	Timestamp time.Duration

	// Assigned by the session, starting at 1.
	Sequence uint64

	count   int32
	release func()
}

// NewSampleBuffer wraps data with a single reference. release may be nil.
func NewSampleBuffer(data []byte, pts time.Duration, release func()) *SampleBuffer {
	return &SampleBuffer{data: data, Timestamp: pts, count: 1, release: release}
}

// Bytes returns the frame data. Valid until the caller's reference is released.
func (buf *SampleBuffer) Bytes() []byte {
	return buf.data
}

// Len returns the number of bytes in the frame.
func (buf *SampleBuffer) Len() int {
	return len(buf.data)
}

// Increments the hold count.
func (buf *SampleBuffer) Hold() {
	atomic.AddInt32(&buf.count, 1)
}

// Decrements the hold count. When the hold count reaches zero, the underlying
// frame memory is handed back to its producer.
func (buf *SampleBuffer) Release() {
	if buf == nil {
		return
	}
	switch n := atomic.AddInt32(&buf.count, -1); {
	case n == 0:
		if buf.release != nil {
			buf.release()
		}
	case n < 0:
		panic("capture: SampleBuffer released too many times")
	}
}

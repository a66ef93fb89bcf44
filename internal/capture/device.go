package capture

import (
	"fmt"

	"github.com/lanikai/mediastream/internal/format"
)

// VideoProperty describes the negotiated capture format.
type VideoProperty struct {
	PixelFormat   format.FourCC
	Width, Height int
	FrameRate     float64
}

func (p VideoProperty) String() string {
	return fmt.Sprintf("%v %dx%d@%g", p.PixelFormat, p.Width, p.Height, p.FrameRate)
}

// BufferSize is the size of one raw frame in this format, or 0 if frames are
// variable size.
func (p VideoProperty) BufferSize() int {
	return format.FrameSize(p.PixelFormat, p.Width, p.Height)
}

// Device is a platform capture session, e.g. a V4L2 character device. The
// device owns its frame memory; samples written to the Output are released
// back to it.
type Device interface {
	// Configure requests a capture format. Zero fields let the device choose.
	// The returned property is what the device actually negotiated.
	Configure(p VideoProperty) (VideoProperty, error)

	// Start begins delivering samples to out from a device goroutine.
	Start(out Output) error

	// Stop ends delivery. No samples are written to the Output after Stop
	// returns.
	Stop() error

	Close() error
}

// Output receives samples from a Device.
type Output interface {
	// WriteSample hands over the caller's reference to buf.
	WriteSample(buf *SampleBuffer)

	// Fail reports that the device stopped delivering samples.
	Fail(err error)
}

// Delegate is supplied by the application to observe captured samples.
type Delegate interface {
	// CaptureOutput runs on the device goroutine once buf has become the
	// session's latest sample. It must return quickly, and Hold() buf if it
	// keeps it.
	CaptureOutput(s *Session, buf *SampleBuffer)
}

// DelegateFunc adapts a function to the Delegate interface.
type DelegateFunc func(s *Session, buf *SampleBuffer)

func (f DelegateFunc) CaptureOutput(s *Session, buf *SampleBuffer) {
	f(s, buf)
}

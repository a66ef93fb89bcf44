// Package codec is the registry of video encoders the daemon can stream with.
package codec

import (
	"image"
	"sort"
	"sync"

	"github.com/pion/rtp"
	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/logging"
)

var log = logging.DefaultLogger.WithTag("codec")

// A VideoEncoder turns pictures into a compressed bitstream, one frame at a
// time. Implementations are not safe for concurrent use.
type VideoEncoder interface {
	// EncodeFrame writes the bitstream for img into dst and returns the number
	// of bytes written. Zero bytes with a nil error means the frame was
	// skipped.
	EncodeFrame(dst []byte, img image.Image) (int, error)

	// ForceIntraFrame makes the next encoded frame a key frame.
	ForceIntraFrame() error

	Close() error
}

// Params configures a new encoder.
type Params struct {
	Width, Height int

	// Target bitrate in bits per second.
	Bitrate int

	FrameRate float64

	// Key frame period in frames. Zero leaves it to the encoder.
	KeyFrameInterval int
}

// MaxFrameSize is a safe destination buffer size for one encoded frame.
func (p Params) MaxFrameSize() int {
	return p.Width*p.Height*3/2 + 4096
}

func (p Params) validate() error {
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return errors.Errorf("invalid picture size %dx%d", p.Width, p.Height)
	case p.Width%2 != 0 || p.Height%2 != 0:
		return errors.Errorf("picture size %dx%d is not even", p.Width, p.Height)
	case p.Bitrate <= 0:
		return errors.Errorf("invalid bitrate %d", p.Bitrate)
	case p.FrameRate <= 0:
		return errors.Errorf("invalid frame rate %g", p.FrameRate)
	}
	return nil
}

// Codec describes a registered video codec.
type Codec struct {
	// Registry key, e.g. "h264".
	Name string

	// RTP media type, e.g. "video/H264".
	MimeType string

	// Dynamic RTP payload type.
	PayloadType uint8

	ClockRate uint32

	// File extension of the raw elementary stream, without the dot.
	Extension string

	New func(p Params) (VideoEncoder, error)

	NewPayloader func() rtp.Payloader

	// IsKeyFrame reports whether an encoded frame can be decoded on its own.
	IsKeyFrame func(frame []byte) bool
}

// NewEncoder validates p and creates an encoder.
func (c *Codec) NewEncoder(p Params) (VideoEncoder, error) {
	if err := p.validate(); err != nil {
		return nil, errors.Wrap(err, c.Name)
	}
	enc, err := c.New(p)
	if err != nil {
		return nil, errors.Wrapf(err, "%s encoder", c.Name)
	}
	log.Debug("New %s encoder: %dx%d@%g %d bps", c.Name, p.Width, p.Height, p.FrameRate, p.Bitrate)
	return enc, nil
}

var (
	mu       sync.RWMutex
	registry = map[string]*Codec{}
)

// Register makes a codec available by name. It panics if the name is taken.
func Register(c *Codec) {
	mu.Lock()
	defer mu.Unlock()

	if _, dup := registry[c.Name]; dup {
		panic("codec: Register called twice for " + c.Name)
	}
	registry[c.Name] = c
}

// Lookup returns the codec registered under name.
func Lookup(name string) (*Codec, error) {
	mu.RLock()
	defer mu.RUnlock()

	if c, ok := registry[name]; ok {
		return c, nil
	}
	return nil, errors.Errorf("codec '%s' not registered (have %v)", name, names())
}

// Names lists the registered codecs in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return names()
}

func names() []string {
	var s []string
	for name := range registry {
		s = append(s, name)
	}
	sort.Strings(s)
	return s
}

func unregister(name string) {
	mu.Lock()
	delete(registry, name)
	mu.Unlock()
}

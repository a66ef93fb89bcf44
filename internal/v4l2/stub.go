//go:build !linux
// +build !linux

package v4l2

import (
	"errors"

	"github.com/lanikai/mediastream/internal/capture"
)

var ErrUnsupported = errors.New("v4l2: only supported on linux")

// Source is unavailable on this platform.
type Source struct {
	capture.Device
}

func Open(devpath string, cfg Config) (*Source, error) {
	return nil, ErrUnsupported
}

// Package format names raw pixel layouts and maps them to four-character
// codes, the form in which capture devices negotiate them.
package format

import (
	"fmt"
	"strings"
)

// FourCC is a four-character pixel format code, packed little endian as in
// V4L2 ('Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24).
type FourCC uint32

// MakeFourCC packs four characters into a FourCC.
func MakeFourCC(a, b, c, d byte) FourCC {
	return FourCC(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// ParseFourCC converts a pixel format name or a literal four-character code
// into a FourCC.
func ParseFourCC(s string) (FourCC, error) {
	if f, ok := names[PixelFormat(strings.ToUpper(s))]; ok {
		return f, nil
	}
	if len(s) == 4 {
		return MakeFourCC(s[0], s[1], s[2], s[3]), nil
	}
	return 0, fmt.Errorf("unknown pixel format %q", s)
}

func (f FourCC) String() string {
	b := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for i, c := range b {
		if c < ' ' || c > '~' {
			b[i] = '.'
		}
	}
	return string(b)
}

// PixelFormat returns the canonical name of f, if it has one.
func (f FourCC) PixelFormat() (PixelFormat, bool) {
	for _, pf := range canonical {
		if names[pf] == f {
			return pf, true
		}
	}
	return "", false
}

// PixelFormat is a libyuv style pixel format name.
// See https://chromium.googlesource.com/libyuv/libyuv/+/master/docs/formats.md
type PixelFormat string

const (
	// Primary YUV formats
	I420 PixelFormat = "I420"
	I422 PixelFormat = "I422"
	I444 PixelFormat = "I444"
	NV12 PixelFormat = "NV12"
	NV21 PixelFormat = "NV21"
	YUY2 PixelFormat = "YUY2"
	UYVY PixelFormat = "UYVY"

	// Primary RGB formats
	ARGB PixelFormat = "ARGB"
	BGRA PixelFormat = "BGRA"
	RAW  PixelFormat = "RAW"

	// Compressed YUV
	MJPG PixelFormat = "MJPG"

	// Aliases
	IYUV = I420
	YU12 = I420
	YU16 = I422
	YU24 = I444
	YUYV = YUY2
	YUVS = YUY2 // Mac
	JPEG = MJPG
	RGB3 = RAW
)

var canonical = []PixelFormat{I420, I422, I444, NV12, NV21, YUY2, UYVY, ARGB, BGRA, RAW, MJPG}

// Codes follow V4L2 where one exists.
var names = map[PixelFormat]FourCC{
	I420: MakeFourCC('Y', 'U', '1', '2'),
	I422: MakeFourCC('4', '2', '2', 'P'),
	I444: MakeFourCC('Y', '4', '4', '4'),
	NV12: MakeFourCC('N', 'V', '1', '2'),
	NV21: MakeFourCC('N', 'V', '2', '1'),
	YUY2: MakeFourCC('Y', 'U', 'Y', 'V'),
	UYVY: MakeFourCC('U', 'Y', 'V', 'Y'),
	ARGB: MakeFourCC('B', 'A', '2', '4'),
	BGRA: MakeFourCC('A', 'R', '2', '4'),
	RAW:  MakeFourCC('R', 'G', 'B', '3'),
	MJPG: MakeFourCC('M', 'J', 'P', 'G'),

	"IYUV": MakeFourCC('Y', 'U', '1', '2'),
	"YU12": MakeFourCC('Y', 'U', '1', '2'),
	"YU16": MakeFourCC('4', '2', '2', 'P'),
	"YU24": MakeFourCC('Y', '4', '4', '4'),
	"YUYV": MakeFourCC('Y', 'U', 'Y', 'V'),
	"YUVS": MakeFourCC('Y', 'U', 'Y', 'V'),
	"JPEG": MakeFourCC('M', 'J', 'P', 'G'),
	"RGB3": MakeFourCC('R', 'G', 'B', '3'),
}

// FourCC returns the code for pf.
func (pf PixelFormat) FourCC() (FourCC, bool) {
	f, ok := names[PixelFormat(strings.ToUpper(string(pf)))]
	return f, ok
}

// FrameSize returns the number of bytes in one uncompressed frame, or 0 when
// the size is not fixed (MJPG) or the format is unknown.
func FrameSize(f FourCC, width, height int) int {
	pf, _ := f.PixelFormat()
	n := width * height
	switch pf {
	case I420, NV12, NV21:
		return n + 2*((width+1)/2)*((height+1)/2)
	case I422, YUY2, UYVY:
		return 2 * n
	case I444, RAW:
		return 3 * n
	case ARGB, BGRA:
		return 4 * n
	}
	return 0
}

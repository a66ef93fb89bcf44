// Package video turns raw captured frames into images and 4:2:0 pictures.
package video

import (
	"image"

	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/format"
)

var (
	ErrInsufficientFrameBuffer = errors.New("insufficient frame buffer")
	ErrUnsupportedPixelFormat  = errors.New("unsupported pixel format")
)

// Formats decoded by mediadevices.
var frameFormats = map[format.PixelFormat]frame.Format{
	format.I420: frame.FormatI420,
	format.I444: frame.FormatI444,
	format.NV12: frame.FormatNV12,
	format.NV21: frame.FormatNV21,
	format.YUY2: frame.FormatYUY2,
	format.UYVY: frame.FormatUYVY,
	format.MJPG: frame.FormatMJPEG,
}

type decoderFunc func(buf []byte, width, height int) (image.Image, error)

// Formats mediadevices does not handle.
var localDecoders = map[format.PixelFormat]decoderFunc{
	format.I422: decodeI422,
	format.ARGB: decodeRGB(4, 2, 1, 0),
	format.BGRA: decodeRGB(4, 1, 2, 3),
	format.RAW:  decodeRGB(3, 0, 1, 2),
}

// Decode interprets buf as one frame of pixel format f. The returned release
// function must be called once the image is no longer needed; the image may
// alias buf.
func Decode(f format.FourCC, buf []byte, width, height int) (image.Image, func(), error) {
	pf, ok := f.PixelFormat()
	if !ok {
		return nil, nop, errors.Wrapf(ErrUnsupportedPixelFormat, "%v", f)
	}
	if width <= 0 || height <= 0 {
		return nil, nop, errors.Errorf("invalid frame size %dx%d", width, height)
	}
	if size := format.FrameSize(f, width, height); len(buf) < size {
		return nil, nop, errors.Wrapf(ErrInsufficientFrameBuffer, "%s %dx%d needs %d bytes, have %d",
			pf, width, height, size, len(buf))
	}

	if decode, ok := localDecoders[pf]; ok {
		img, err := decode(buf, width, height)
		return img, nop, err
	}

	d, err := frame.NewDecoder(frameFormats[pf])
	if err != nil {
		return nil, nop, errors.Wrapf(ErrUnsupportedPixelFormat, "%s", pf)
	}
	img, release, err := d.Decode(buf, width, height)
	if release == nil {
		release = nop
	}
	return img, release, err
}

func nop() {}

func decodeI422(buf []byte, width, height int) (image.Image, error) {
	yi := width * height
	cbi := yi + yi/2
	cri := cbi + yi/2
	return &image.YCbCr{
		Y:              buf[:yi:yi],
		Cb:             buf[yi:cbi:cbi],
		Cr:             buf[cbi:cri:cri],
		YStride:        width,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio422,
		Rect:           image.Rect(0, 0, width, height),
	}, nil
}

// decodeRGB returns a decoder for packed RGB layouts with bpp bytes per pixel
// and the given byte offsets of the red, green and blue components.
func decodeRGB(bpp, r, g, b int) decoderFunc {
	return func(buf []byte, width, height int) (image.Image, error) {
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for i, j := 0, 0; j < len(img.Pix); i, j = i+bpp, j+4 {
			img.Pix[j+0] = buf[i+r]
			img.Pix[j+1] = buf[i+g]
			img.Pix[j+2] = buf[i+b]
			img.Pix[j+3] = 0xff
		}
		return img, nil
	}
}

package video

import (
	"image"

	"github.com/pion/mediadevices/pkg/io/video"

	"github.com/lanikai/mediastream/internal/format"
)

// ToYUV420 converts img to a planar 4:2:0 image. Images already in 4:2:0 are
// returned as is.
func ToYUV420(img image.Image) (*image.YCbCr, func(), error) {
	if yuv, ok := img.(*image.YCbCr); ok && yuv.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		return yuv, nop, nil
	}

	r := video.ToI420(video.ReaderFunc(func() (image.Image, func(), error) {
		return img, nop, nil
	}))
	out, release, err := r.Read()
	if err != nil {
		return nil, nop, err
	}
	if release == nil {
		release = nop
	}
	return out.(*image.YCbCr), release, nil
}

// DecodeToYUV420 decodes a raw frame and converts it to 4:2:0.
func DecodeToYUV420(f format.FourCC, buf []byte, width, height int) (*image.YCbCr, func(), error) {
	img, release, err := Decode(f, buf, width, height)
	if err != nil {
		return nil, release, err
	}
	yuv, release2, err := ToYUV420(img)
	if err != nil {
		release()
		return nil, nop, err
	}
	return yuv, func() {
		release2()
		release()
	}, nil
}

// Planes returns the Y, Cb and Cr planes of a 4:2:0 image trimmed to its
// visible area, with strides equal to the plane widths.
func Planes(img *image.YCbCr) (y, cb, cr []byte) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	cw, ch := (w+1)/2, (h+1)/2
	if img.YStride == w && img.CStride == cw && img.Rect.Min == (image.Point{}) {
		return img.Y[:w*h], img.Cb[:cw*ch], img.Cr[:cw*ch]
	}

	y = make([]byte, w*h)
	cb = make([]byte, cw*ch)
	cr = make([]byte, cw*ch)
	for row := 0; row < h; row++ {
		off := img.YOffset(img.Rect.Min.X, img.Rect.Min.Y+row)
		copy(y[row*w:], img.Y[off:off+w])
	}
	for row := 0; row < ch; row++ {
		off := img.COffset(img.Rect.Min.X, img.Rect.Min.Y+2*row)
		copy(cb[row*cw:], img.Cb[off:off+cw])
		copy(cr[row*cw:], img.Cr[off:off+cw])
	}
	return y, cb, cr
}

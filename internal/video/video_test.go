package video

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/mediastream/internal/format"
)

func fourcc(t *testing.T, pf format.PixelFormat) format.FourCC {
	f, ok := pf.FourCC()
	require.True(t, ok)
	return f
}

func TestDecodeI420(t *testing.T) {
	buf := make([]byte, 4*2*3/2)
	for i := range buf {
		buf[i] = byte(i)
	}

	img, release, err := Decode(fourcc(t, format.I420), buf, 4, 2)
	require.NoError(t, err)
	defer release()

	yuv, ok := img.(*image.YCbCr)
	require.True(t, ok)
	assert.Equal(t, image.YCbCrSubsampleRatio420, yuv.SubsampleRatio)
	assert.Equal(t, buf[:8], yuv.Y[:8])
	assert.Equal(t, buf[8:10], yuv.Cb[:2])
	assert.Equal(t, buf[10:12], yuv.Cr[:2])
}

func TestDecodeShortBuffer(t *testing.T) {
	_, release, err := Decode(fourcc(t, format.YUY2), make([]byte, 10), 4, 4)
	assert.Equal(t, ErrInsufficientFrameBuffer, errors.Cause(err))
	assert.Contains(t, err.Error(), "YUY2 4x4 needs 32 bytes, have 10")
	release()
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, _, err := Decode(format.MakeFourCC('X', 'X', 'X', 'X'), make([]byte, 64), 4, 4)
	assert.Equal(t, ErrUnsupportedPixelFormat, errors.Cause(err))
}

func TestDecodeRGB(t *testing.T) {
	// One pixel each: ARGB is B,G,R,A in memory, BGRA is A,R,G,B, RAW is R,G,B.
	cases := []struct {
		pf  format.PixelFormat
		buf []byte
	}{
		{format.ARGB, []byte{30, 20, 10, 255}},
		{format.BGRA, []byte{255, 10, 20, 30}},
		{format.RAW, []byte{10, 20, 30}},
	}
	for _, c := range cases {
		t.Run(string(c.pf), func(t *testing.T) {
			img, _, err := Decode(fourcc(t, c.pf), c.buf, 1, 1)
			require.NoError(t, err)
			assert.Equal(t, []byte{10, 20, 30, 255}, img.(*image.RGBA).Pix)
		})
	}
}

func TestToYUV420(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range rgba.Pix {
		rgba.Pix[i] = 0xff
	}

	yuv, release, err := ToYUV420(rgba)
	require.NoError(t, err)
	defer release()

	assert.Equal(t, image.YCbCrSubsampleRatio420, yuv.SubsampleRatio)
	y, cb, cr := Planes(yuv)
	assert.Len(t, y, 16)
	assert.Len(t, cb, 4)
	assert.Len(t, cr, 4)
	for _, v := range y {
		assert.InDelta(t, 235, int(v), 21)
	}
}

func TestToYUV420Passthrough(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)
	yuv, _, err := ToYUV420(src)
	require.NoError(t, err)
	assert.Same(t, src, yuv)
}

func TestPlanesSubImage(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)
	for i := range src.Y {
		src.Y[i] = byte(i)
	}
	sub := src.SubImage(image.Rect(2, 2, 6, 6)).(*image.YCbCr)

	y, cb, _ := Planes(sub)
	require.Len(t, y, 16)
	assert.Len(t, cb, 4)
	assert.Equal(t, []byte{18, 19, 20, 21}, y[:4])
}

func TestDecodeToYUV420(t *testing.T) {
	buf := make([]byte, 2*4*2) // YUY2 4x2
	yuv, release, err := DecodeToYUV420(fourcc(t, format.YUY2), buf, 4, 2)
	require.NoError(t, err)
	defer release()
	assert.Equal(t, 4, yuv.Rect.Dx())
	assert.Equal(t, image.YCbCrSubsampleRatio420, yuv.SubsampleRatio)
}

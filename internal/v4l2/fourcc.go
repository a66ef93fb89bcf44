package v4l2

import "github.com/lanikai/mediastream/internal/format"

// V4L2 pixel formats are FourCC codes in the same byte order as
// format.FourCC, so conversion is a cast.
func fourcc(v uint32) format.FourCC {
	return format.FourCC(v)
}

var (
	V4L2_PIX_FMT_YUV420 = format.MakeFourCC('Y', 'U', '1', '2')
	V4L2_PIX_FMT_NV12   = format.MakeFourCC('N', 'V', '1', '2')
	V4L2_PIX_FMT_YUYV   = format.MakeFourCC('Y', 'U', 'Y', 'V')
	V4L2_PIX_FMT_UYVY   = format.MakeFourCC('U', 'Y', 'V', 'Y')
	V4L2_PIX_FMT_MJPEG  = format.MakeFourCC('M', 'J', 'P', 'G')
	V4L2_PIX_FMT_H264   = format.MakeFourCC('H', '2', '6', '4')
)

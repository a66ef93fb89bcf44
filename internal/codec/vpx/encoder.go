//go:build vpx
// +build vpx

package vpx

import (
	"image"
	"io"

	"github.com/pion/mediadevices/pkg/codec"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pkg/errors"

	ourcodec "github.com/lanikai/mediastream/internal/codec"
)

// Version selects the VPx bitstream.
type Version string

const (
	Version8 Version = "vp8"
	Version9 Version = "vp9"
)

// encoder feeds one image at a time through a mediadevices encoder, which
// pulls its input from Read.
type encoder struct {
	codec codec.ReadCloser
	img   image.Image
}

// NewEncoder creates a VP8 or VP9 encoder.
func NewEncoder(v Version, p ourcodec.Params) (ourcodec.VideoEncoder, error) {
	enc := &encoder{}

	var builder codec.VideoEncoderBuilder
	switch v {
	case Version8:
		params, err := vpx.NewVP8Params()
		if err != nil {
			return nil, err
		}
		params.BitRate = p.Bitrate
		params.KeyFrameInterval = p.KeyFrameInterval
		builder = &params
	case Version9:
		params, err := vpx.NewVP9Params()
		if err != nil {
			return nil, err
		}
		params.BitRate = p.Bitrate
		params.KeyFrameInterval = p.KeyFrameInterval
		builder = &params
	default:
		return nil, errors.Errorf("unsupported vpx version: %s", v)
	}

	c, err := builder.BuildVideoEncoder(enc, prop.Media{
		Video: prop.Video{
			Width:     p.Width,
			Height:    p.Height,
			FrameRate: float32(p.FrameRate),
		},
	})
	if err != nil {
		return nil, err
	}
	enc.codec = c
	return enc, nil
}

// Read hands the pending image to the codec.
func (v *encoder) Read() (image.Image, func(), error) {
	if v.img == nil {
		return nil, func() {}, io.EOF
	}
	img := v.img
	v.img = nil
	return img, func() {}, nil
}

func (v *encoder) EncodeFrame(dst []byte, img image.Image) (int, error) {
	v.img = img
	data, release, err := v.codec.Read()
	if err != nil {
		return 0, err
	}
	defer release()
	if len(data) > len(dst) {
		return 0, errors.Wrapf(io.ErrShortBuffer, "vpx: frame of %d bytes", len(data))
	}
	return copy(dst, data), nil
}

func (v *encoder) ForceIntraFrame() error {
	if kf, ok := v.codec.Controller().(codec.KeyFrameController); ok {
		return kf.ForceKeyFrame()
	}
	return errors.New("vpx: encoder cannot force key frames")
}

func (v *encoder) Close() error {
	return v.codec.Close()
}

func init() {
	ourcodec.Register(&ourcodec.Codec{
		Name:        "vp8",
		MimeType:    "video/VP8",
		PayloadType: 97,
		ClockRate:   90000,
		Extension:   "vp8",
		New: func(p ourcodec.Params) (ourcodec.VideoEncoder, error) {
			return NewEncoder(Version8, p)
		},
		NewPayloader: func() rtp.Payloader { return &codecs.VP8Payloader{} },
		IsKeyFrame:   IsVP8KeyFrame,
	})
	ourcodec.Register(&ourcodec.Codec{
		Name:        "vp9",
		MimeType:    "video/VP9",
		PayloadType: 98,
		ClockRate:   90000,
		Extension:   "vp9",
		New: func(p ourcodec.Params) (ourcodec.VideoEncoder, error) {
			return NewEncoder(Version9, p)
		},
		NewPayloader: func() rtp.Payloader { return &codecs.VP9Payloader{} },
		IsKeyFrame:   IsVP9KeyFrame,
	})
}

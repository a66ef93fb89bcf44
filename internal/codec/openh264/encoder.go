// Package openh264 encodes I420 pictures to H.264 with Cisco's OpenH264.
//
// The SDK itself is reached through the Library interface. Builds with cgo and
// the openh264 tag link libopenh264 and set DefaultLibrary; other builds have
// no default library and NewEncoder fails with ErrUnavailable.
package openh264

import (
	"image"
	"io"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pkg/errors"

	"github.com/lanikai/mediastream/internal/codec"
	"github.com/lanikai/mediastream/internal/logging"
	"github.com/lanikai/mediastream/internal/media/h264"
	"github.com/lanikai/mediastream/internal/video"
)

var log = logging.DefaultLogger.WithTag("openh264")

var (
	ErrUnavailable = errors.New("openh264: not built with libopenh264 (use -tags openh264)")
	ErrClosed      = errors.New("openh264: encoder closed")
)

// DefaultLibrary is the linked SDK, or nil.
var DefaultLibrary Library

const sliceSizeConstraint = 12800

// Encoder owns one SDK encoder instance. It is not safe for concurrent use.
type Encoder struct {
	lib    Library
	enc    SVCEncoder
	width  int
	height int
	frames int64
	msPer  float64
}

// NewEncoder creates and initializes an encoder for width x height I420
// pictures. bitrate is in bits per second. A nil lib means DefaultLibrary.
func NewEncoder(lib Library, width, height, bitrate int, frameRate float64) (*Encoder, error) {
	if lib == nil {
		lib = DefaultLibrary
	}
	if lib == nil {
		return nil, ErrUnavailable
	}
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, errors.Errorf("openh264: invalid picture size %dx%d", width, height)
	}

	enc, r := lib.CreateSVCEncoder()
	if r != ResultSuccess {
		return nil, &Error{"create", r}
	}

	var param ParamExt
	if r = enc.GetDefaultParams(&param); r != ResultSuccess {
		lib.DestroySVCEncoder(enc)
		return nil, &Error{"get default params", r}
	}
	configure(&param, width, height, bitrate, frameRate)
	if r = enc.InitializeExt(&param); r != ResultSuccess {
		lib.DestroySVCEncoder(enc)
		return nil, &Error{"initialize", r}
	}
	if r = enc.SetOption(OptionDataFormat, int(VideoFormatI420)); r != ResultSuccess {
		log.Warn("set data format: %v", r)
	}

	e := &Encoder{lib: lib, enc: enc, width: width, height: height}
	if frameRate > 0 {
		e.msPer = 1000 / frameRate
	}
	return e, nil
}

// configure applies the fixed encoding policy on top of the SDK defaults.
func configure(p *ParamExt, width, height, bitrate int, frameRate float64) {
	p.UsageType = CameraVideoRealTime
	p.MaxFrameRate = float32(frameRate)
	p.PicWidth = width
	p.PicHeight = height
	p.TargetBitrate = bitrate
	p.MaxBitrate = bitrate
	p.RCMode = RCBitrateMode
	p.TemporalLayerNum = 1
	p.SpatialLayerNum = 1
	p.EnableDenoise = false
	p.EnableBackgroundDetection = true
	p.EnableAdaptiveQuant = true
	p.EnableFrameSkip = true
	p.EnableLongTermReference = false
	p.LtrMarkPeriod = 30
	p.PrefixNalAddingCtrl = false
	p.EntropyCodingModeFlag = 0
	p.MultipleThreadIdc = 0

	l := &p.SpatialLayers[0]
	l.VideoWidth = p.PicWidth
	l.VideoHeight = p.PicHeight
	l.FrameRate = p.MaxFrameRate
	l.SpatialBitrate = p.TargetBitrate
	l.MaxSpatialBitrate = p.MaxBitrate
	l.Slice.Num = 1
	l.Slice.Mode = SMSizeLimitedSlice
	l.Slice.SizeConstraint = sliceSizeConstraint
}

// Close uninitializes and destroys the SDK encoder. Closing a nil or already
// closed encoder does nothing.
func (e *Encoder) Close() error {
	if e == nil || e.enc == nil {
		return nil
	}
	e.enc.Uninitialize()
	e.lib.DestroySVCEncoder(e.enc)
	e.enc = nil
	return nil
}

// Encode submits one I420 picture, given as separate planes with strides
// width, width/2 and width/2, and copies every output layer into dst in
// order. It returns the number of bytes written, which is 0 when the encoder
// skipped the frame. If dst cannot hold the whole frame nothing is written.
func (e *Encoder) Encode(dst, y, cb, cr []byte, width, height int) (int, error) {
	if e == nil || e.enc == nil {
		return 0, ErrClosed
	}
	if width <= 0 || height <= 0 {
		return 0, errors.Errorf("openh264: invalid picture size %dx%d", width, height)
	}
	cw, ch := width/2, height/2
	if len(y) < width*height || len(cb) < cw*ch || len(cr) < cw*ch {
		return 0, errors.Errorf("openh264: planes too small for %dx%d (%d, %d, %d bytes)",
			width, height, len(y), len(cb), len(cr))
	}

	pic := SourcePicture{
		ColorFormat: VideoFormatI420,
		PicWidth:    width,
		PicHeight:   height,
		Stride:      [4]int{width, cw, cw},
		Data:        [4][]byte{y, cb, cr},
		TimeStamp:   int64(float64(e.frames) * e.msPer),
	}
	e.frames++

	var info FrameBSInfo
	if r := e.enc.EncodeFrame(&pic, &info); r != ResultSuccess {
		return 0, &Error{"encode", r}
	}
	if info.FrameType == FrameTypeSkip {
		log.Trace(5, "frame %d skipped", e.frames)
		return 0, nil
	}

	total := 0
	for i := range info.Layers {
		total += info.Layers[i].Size()
	}
	if total > len(dst) {
		return 0, errors.Wrapf(io.ErrShortBuffer, "openh264: frame needs %d bytes, have %d", total, len(dst))
	}

	n := 0
	for i := range info.Layers {
		layer := &info.Layers[i]
		n += copy(dst[n:], layer.BsBuf[:layer.Size()])
	}
	return n, nil
}

// EncodeFrame encodes any image, converting it to 4:2:0 first.
func (e *Encoder) EncodeFrame(dst []byte, img image.Image) (int, error) {
	yuv, release, err := video.ToYUV420(img)
	if err != nil {
		return 0, err
	}
	defer release()

	y, cb, cr := video.Planes(yuv)
	return e.Encode(dst, y, cb, cr, yuv.Rect.Dx(), yuv.Rect.Dy())
}

// ForceIntraFrame makes the next encoded picture an IDR picture.
func (e *Encoder) ForceIntraFrame() error {
	if e == nil || e.enc == nil {
		return ErrClosed
	}
	if r := e.enc.ForceIntraFrame(true); r != ResultSuccess {
		return &Error{"force intra frame", r}
	}
	return nil
}

func init() {
	codec.Register(&codec.Codec{
		Name:        "h264",
		MimeType:    "video/H264",
		PayloadType: 96,
		ClockRate:   90000,
		Extension:   "h264",
		New: func(p codec.Params) (codec.VideoEncoder, error) {
			return NewEncoder(nil, p.Width, p.Height, p.Bitrate, p.FrameRate)
		},
		NewPayloader: func() rtp.Payloader {
			return &codecs.H264Payloader{}
		},
		IsKeyFrame: h264.IsKeyFrame,
	})
}

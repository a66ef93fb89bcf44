package openh264

import "fmt"

// Result is an OpenH264 CM_RETURN code.
type Result int

const (
	ResultSuccess         Result = 0
	ResultInitParaError   Result = 1
	ResultUnknownReason   Result = 2
	ResultMallocMemeError Result = 4
	ResultInitExpected    Result = 8
	ResultUnsupportedData Result = 16
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "cmResultSuccess"
	case ResultInitParaError:
		return "cmInitParaError"
	case ResultUnknownReason:
		return "cmUnknownReason"
	case ResultMallocMemeError:
		return "cmMallocMemeError"
	case ResultInitExpected:
		return "cmInitExpected"
	case ResultUnsupportedData:
		return "cmUnsupportedData"
	}
	return fmt.Sprintf("CM_RETURN(%d)", int(r))
}

// Error carries a non-zero SDK result code unchanged.
type Error struct {
	Op   string
	Code Result
}

func (e *Error) Error() string {
	return fmt.Sprintf("openh264: %s: %v", e.Op, e.Code)
}

// Is matches another *Error with the same code, regardless of Op.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// EUsageType
type UsageType int

const (
	CameraVideoRealTime      UsageType = 0
	ScreenContentRealTime    UsageType = 1
	CameraVideoNonRealTime   UsageType = 2
	ScreenContentNonRealTime UsageType = 3
)

// RC_MODES
type RCMode int

const (
	RCQualityMode     RCMode = 0
	RCBitrateMode     RCMode = 1
	RCBufferBasedMode RCMode = 2
	RCTimestampMode   RCMode = 3
	RCOffMode         RCMode = -1
)

// SliceModeEnum
type SliceMode int

const (
	SMSingleSlice      SliceMode = 0
	SMFixedSliceNum    SliceMode = 1
	SMRasterSlice      SliceMode = 2
	SMSizeLimitedSlice SliceMode = 3
)

// EVideoFrameType
type FrameType int

const (
	FrameTypeInvalid FrameType = 0
	FrameTypeIDR     FrameType = 1
	FrameTypeI       FrameType = 2
	FrameTypeP       FrameType = 3
	FrameTypeSkip    FrameType = 4
	FrameTypeIPMixed FrameType = 5
)

// EVideoFormatType
type VideoFormat int

const VideoFormatI420 VideoFormat = 23

// ENCODER_OPTION
type Option int

const OptionDataFormat Option = 0

const MaxSpatialLayerNum = 4

type SliceArgument struct {
	Mode           SliceMode
	Num            uint32
	SizeConstraint uint32
}

type SpatialLayerConfig struct {
	VideoWidth, VideoHeight int
	FrameRate               float32
	SpatialBitrate          int
	MaxSpatialBitrate       int
	Slice                   SliceArgument
}

// ParamExt mirrors the SEncParamExt fields this package configures. Fields
// not listed here keep the SDK defaults.
type ParamExt struct {
	UsageType     UsageType
	PicWidth      int
	PicHeight     int
	TargetBitrate int
	MaxBitrate    int
	RCMode        RCMode
	MaxFrameRate  float32

	TemporalLayerNum int
	SpatialLayerNum  int
	SpatialLayers    [MaxSpatialLayerNum]SpatialLayerConfig

	EnableDenoise             bool
	EnableBackgroundDetection bool
	EnableAdaptiveQuant       bool
	EnableFrameSkip           bool
	EnableLongTermReference   bool
	LtrMarkPeriod             uint32
	PrefixNalAddingCtrl       bool

	// 0 is CAVLC, 1 is CABAC.
	EntropyCodingModeFlag int

	// 0 lets the SDK pick, 1 is single threaded.
	MultipleThreadIdc int
}

// SourcePicture is one planar input picture (SSourcePicture).
type SourcePicture struct {
	ColorFormat VideoFormat
	Stride      [4]int
	Data        [4][]byte
	PicWidth    int
	PicHeight   int

	// Milliseconds.
	TimeStamp int64
}

// LayerBSInfo describes the bitstream of one layer. BsBuf holds the NAL units
// back to back, NalLengthInByte their lengths in order.
type LayerBSInfo struct {
	TemporalID      uint8
	SpatialID       uint8
	QualityID       uint8
	FrameType       FrameType
	NalLengthInByte []int
	BsBuf           []byte
}

// Size is the sum of the layer's NAL unit lengths.
func (l *LayerBSInfo) Size() int {
	n := 0
	for _, m := range l.NalLengthInByte {
		n += m
	}
	return n
}

// FrameBSInfo is the encoder output for one picture. Buffers are owned by the
// encoder and valid until its next call.
type FrameBSInfo struct {
	Layers           []LayerBSInfo
	FrameType        FrameType
	FrameSizeInBytes int
	TimeStamp        int64
}

// Library creates and destroys encoder instances
// (WelsCreateSVCEncoder/WelsDestroySVCEncoder).
type Library interface {
	CreateSVCEncoder() (SVCEncoder, Result)
	DestroySVCEncoder(enc SVCEncoder)
}

// SVCEncoder is the ISVCEncoder interface.
type SVCEncoder interface {
	GetDefaultParams(p *ParamExt) Result
	InitializeExt(p *ParamExt) Result
	SetOption(opt Option, value int) Result
	EncodeFrame(pic *SourcePicture, info *FrameBSInfo) Result
	ForceIntraFrame(idr bool) Result
	Uninitialize() Result
}

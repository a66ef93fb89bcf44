//go:build openh264 && cgo
// +build openh264,cgo

package openh264

// #cgo pkg-config: openh264
/*
#include <stdint.h>
#include <string.h>
#include <wels/codec_api.h>

// Fields of SEncParamExt configured from Go. Everything else keeps the value
// returned by GetDefaultParams.
typedef struct {
	int usageType;
	int picWidth, picHeight;
	int targetBitrate, maxBitrate;
	int rcMode;
	float maxFrameRate;
	int temporalLayerNum, spatialLayerNum;
	int enableDenoise, enableBackgroundDetection, enableAdaptiveQuant;
	int enableFrameSkip, enableLongTermReference;
	unsigned int ltrMarkPeriod;
	int prefixNalAddingCtrl;
	int entropyCodingModeFlag;
	int multipleThreadIdc;
	int layerWidth[MAX_SPATIAL_LAYER_NUM], layerHeight[MAX_SPATIAL_LAYER_NUM];
	float layerFrameRate[MAX_SPATIAL_LAYER_NUM];
	int layerBitrate[MAX_SPATIAL_LAYER_NUM], layerMaxBitrate[MAX_SPATIAL_LAYER_NUM];
	int sliceMode[MAX_SPATIAL_LAYER_NUM];
	unsigned int sliceNum[MAX_SPATIAL_LAYER_NUM], sliceSizeConstraint[MAX_SPATIAL_LAYER_NUM];
} goParamExt;

static void paramToGo(const SEncParamExt *p, goParamExt *g) {
	g->usageType = p->iUsageType;
	g->picWidth = p->iPicWidth;
	g->picHeight = p->iPicHeight;
	g->targetBitrate = p->iTargetBitrate;
	g->maxBitrate = p->iMaxBitrate;
	g->rcMode = p->iRCMode;
	g->maxFrameRate = p->fMaxFrameRate;
	g->temporalLayerNum = p->iTemporalLayerNum;
	g->spatialLayerNum = p->iSpatialLayerNum;
	g->enableDenoise = p->bEnableDenoise;
	g->enableBackgroundDetection = p->bEnableBackgroundDetection;
	g->enableAdaptiveQuant = p->bEnableAdaptiveQuant;
	g->enableFrameSkip = p->bEnableFrameSkip;
	g->enableLongTermReference = p->bEnableLongTermReference;
	g->ltrMarkPeriod = p->iLtrMarkPeriod;
	g->prefixNalAddingCtrl = p->bPrefixNalAddingCtrl;
	g->entropyCodingModeFlag = p->iEntropyCodingModeFlag;
	g->multipleThreadIdc = p->iMultipleThreadIdc;
	for (int i = 0; i < MAX_SPATIAL_LAYER_NUM; i++) {
		const SSpatialLayerConfig *l = &p->sSpatialLayers[i];
		g->layerWidth[i] = l->iVideoWidth;
		g->layerHeight[i] = l->iVideoHeight;
		g->layerFrameRate[i] = l->fFrameRate;
		g->layerBitrate[i] = l->iSpatialBitrate;
		g->layerMaxBitrate[i] = l->iMaxSpatialBitrate;
		g->sliceMode[i] = l->sSliceArgument.uiSliceMode;
		g->sliceNum[i] = l->sSliceArgument.uiSliceNum;
		g->sliceSizeConstraint[i] = l->sSliceArgument.uiSliceSizeConstraint;
	}
}

static void paramFromGo(SEncParamExt *p, const goParamExt *g) {
	p->iUsageType = (EUsageType)g->usageType;
	p->iPicWidth = g->picWidth;
	p->iPicHeight = g->picHeight;
	p->iTargetBitrate = g->targetBitrate;
	p->iMaxBitrate = g->maxBitrate;
	p->iRCMode = (RC_MODES)g->rcMode;
	p->fMaxFrameRate = g->maxFrameRate;
	p->iTemporalLayerNum = g->temporalLayerNum;
	p->iSpatialLayerNum = g->spatialLayerNum;
	p->bEnableDenoise = g->enableDenoise;
	p->bEnableBackgroundDetection = g->enableBackgroundDetection;
	p->bEnableAdaptiveQuant = g->enableAdaptiveQuant;
	p->bEnableFrameSkip = g->enableFrameSkip;
	p->bEnableLongTermReference = g->enableLongTermReference;
	p->iLtrMarkPeriod = g->ltrMarkPeriod;
	p->bPrefixNalAddingCtrl = g->prefixNalAddingCtrl;
	p->iEntropyCodingModeFlag = g->entropyCodingModeFlag;
	p->iMultipleThreadIdc = g->multipleThreadIdc;
	for (int i = 0; i < MAX_SPATIAL_LAYER_NUM; i++) {
		SSpatialLayerConfig *l = &p->sSpatialLayers[i];
		l->iVideoWidth = g->layerWidth[i];
		l->iVideoHeight = g->layerHeight[i];
		l->fFrameRate = g->layerFrameRate[i];
		l->iSpatialBitrate = g->layerBitrate[i];
		l->iMaxSpatialBitrate = g->layerMaxBitrate[i];
		l->sSliceArgument.uiSliceMode = (SliceModeEnum)g->sliceMode[i];
		l->sSliceArgument.uiSliceNum = g->sliceNum[i];
		l->sSliceArgument.uiSliceSizeConstraint = g->sliceSizeConstraint[i];
	}
}

static int encGetDefaultParams(ISVCEncoder *enc, SEncParamExt *p) {
	return (*enc)->GetDefaultParams(enc, p);
}

static int encInitializeExt(ISVCEncoder *enc, const SEncParamExt *p) {
	return (*enc)->InitializeExt(enc, p);
}

static int encSetOption(ISVCEncoder *enc, int opt, int value) {
	return (*enc)->SetOption(enc, (ENCODER_OPTION)opt, &value);
}

static int encEncodeFrame(ISVCEncoder *enc, int format, int width, int height,
		int strideY, int strideC, uint8_t *y, uint8_t *cb, uint8_t *cr,
		long long timestamp, SFrameBSInfo *info) {
	SSourcePicture pic;
	memset(&pic, 0, sizeof(pic));
	memset(info, 0, sizeof(*info));
	pic.iColorFormat = format;
	pic.iPicWidth = width;
	pic.iPicHeight = height;
	pic.iStride[0] = strideY;
	pic.iStride[1] = strideC;
	pic.iStride[2] = strideC;
	pic.pData[0] = y;
	pic.pData[1] = cb;
	pic.pData[2] = cr;
	pic.uiTimeStamp = timestamp;
	return (*enc)->EncodeFrame(enc, &pic, info);
}

static int encForceIntraFrame(ISVCEncoder *enc, int idr) {
	return (*enc)->ForceIntraFrame(enc, idr != 0, -1);
}

static int encUninitialize(ISVCEncoder *enc) {
	return (*enc)->Uninitialize(enc);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

func init() {
	v := C.WelsGetCodecVersion()
	log.Debug("libopenh264 %d.%d.%d", v.uMajor, v.uMinor, v.uRevision)
	DefaultLibrary = cgoLibrary{}
}

type cgoLibrary struct{}

func (cgoLibrary) CreateSVCEncoder() (SVCEncoder, Result) {
	var enc *C.ISVCEncoder
	if r := C.WelsCreateSVCEncoder(&enc); r != 0 {
		return nil, Result(r)
	}
	return &cgoEncoder{enc: enc}, ResultSuccess
}

func (cgoLibrary) DestroySVCEncoder(e SVCEncoder) {
	if ce, ok := e.(*cgoEncoder); ok && ce.enc != nil {
		C.WelsDestroySVCEncoder(ce.enc)
		ce.enc = nil
	}
}

type cgoEncoder struct {
	enc   *C.ISVCEncoder
	param C.SEncParamExt
	info  C.SFrameBSInfo
}

func (e *cgoEncoder) GetDefaultParams(p *ParamExt) Result {
	r := Result(C.encGetDefaultParams(e.enc, &e.param))
	if r != ResultSuccess {
		return r
	}

	var g C.goParamExt
	C.paramToGo(&e.param, &g)
	*p = ParamExt{
		UsageType:                 UsageType(g.usageType),
		PicWidth:                  int(g.picWidth),
		PicHeight:                 int(g.picHeight),
		TargetBitrate:             int(g.targetBitrate),
		MaxBitrate:                int(g.maxBitrate),
		RCMode:                    RCMode(g.rcMode),
		MaxFrameRate:              float32(g.maxFrameRate),
		TemporalLayerNum:          int(g.temporalLayerNum),
		SpatialLayerNum:           int(g.spatialLayerNum),
		EnableDenoise:             g.enableDenoise != 0,
		EnableBackgroundDetection: g.enableBackgroundDetection != 0,
		EnableAdaptiveQuant:       g.enableAdaptiveQuant != 0,
		EnableFrameSkip:           g.enableFrameSkip != 0,
		EnableLongTermReference:   g.enableLongTermReference != 0,
		LtrMarkPeriod:             uint32(g.ltrMarkPeriod),
		PrefixNalAddingCtrl:       g.prefixNalAddingCtrl != 0,
		EntropyCodingModeFlag:     int(g.entropyCodingModeFlag),
		MultipleThreadIdc:         int(g.multipleThreadIdc),
	}
	for i := range p.SpatialLayers {
		p.SpatialLayers[i] = SpatialLayerConfig{
			VideoWidth:        int(g.layerWidth[i]),
			VideoHeight:       int(g.layerHeight[i]),
			FrameRate:         float32(g.layerFrameRate[i]),
			SpatialBitrate:    int(g.layerBitrate[i]),
			MaxSpatialBitrate: int(g.layerMaxBitrate[i]),
			Slice: SliceArgument{
				Mode:           SliceMode(g.sliceMode[i]),
				Num:            uint32(g.sliceNum[i]),
				SizeConstraint: uint32(g.sliceSizeConstraint[i]),
			},
		}
	}
	return ResultSuccess
}

func (e *cgoEncoder) InitializeExt(p *ParamExt) Result {
	g := C.goParamExt{
		usageType:                 C.int(p.UsageType),
		picWidth:                  C.int(p.PicWidth),
		picHeight:                 C.int(p.PicHeight),
		targetBitrate:             C.int(p.TargetBitrate),
		maxBitrate:                C.int(p.MaxBitrate),
		rcMode:                    C.int(p.RCMode),
		maxFrameRate:              C.float(p.MaxFrameRate),
		temporalLayerNum:          C.int(p.TemporalLayerNum),
		spatialLayerNum:           C.int(p.SpatialLayerNum),
		enableDenoise:             cbool(p.EnableDenoise),
		enableBackgroundDetection: cbool(p.EnableBackgroundDetection),
		enableAdaptiveQuant:       cbool(p.EnableAdaptiveQuant),
		enableFrameSkip:           cbool(p.EnableFrameSkip),
		enableLongTermReference:   cbool(p.EnableLongTermReference),
		ltrMarkPeriod:             C.uint(p.LtrMarkPeriod),
		prefixNalAddingCtrl:       cbool(p.PrefixNalAddingCtrl),
		entropyCodingModeFlag:     C.int(p.EntropyCodingModeFlag),
		multipleThreadIdc:         C.int(p.MultipleThreadIdc),
	}
	for i, l := range p.SpatialLayers {
		g.layerWidth[i] = C.int(l.VideoWidth)
		g.layerHeight[i] = C.int(l.VideoHeight)
		g.layerFrameRate[i] = C.float(l.FrameRate)
		g.layerBitrate[i] = C.int(l.SpatialBitrate)
		g.layerMaxBitrate[i] = C.int(l.MaxSpatialBitrate)
		g.sliceMode[i] = C.int(l.Slice.Mode)
		g.sliceNum[i] = C.uint(l.Slice.Num)
		g.sliceSizeConstraint[i] = C.uint(l.Slice.SizeConstraint)
	}
	C.paramFromGo(&e.param, &g)
	return Result(C.encInitializeExt(e.enc, &e.param))
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (e *cgoEncoder) SetOption(opt Option, value int) Result {
	return Result(C.encSetOption(e.enc, C.int(opt), C.int(value)))
}

func (e *cgoEncoder) EncodeFrame(pic *SourcePicture, info *FrameBSInfo) Result {
	if pic.Stride[1] != pic.Stride[2] {
		panic(fmt.Sprintf("openh264: chroma strides differ (%d, %d)", pic.Stride[1], pic.Stride[2]))
	}
	r := C.encEncodeFrame(e.enc,
		C.int(pic.ColorFormat), C.int(pic.PicWidth), C.int(pic.PicHeight),
		C.int(pic.Stride[0]), C.int(pic.Stride[1]),
		(*C.uint8_t)(unsafe.Pointer(&pic.Data[0][0])),
		(*C.uint8_t)(unsafe.Pointer(&pic.Data[1][0])),
		(*C.uint8_t)(unsafe.Pointer(&pic.Data[2][0])),
		C.longlong(pic.TimeStamp), &e.info)
	if Result(r) != ResultSuccess {
		return Result(r)
	}

	info.FrameType = FrameType(e.info.eFrameType)
	info.FrameSizeInBytes = int(e.info.iFrameSizeInBytes)
	info.TimeStamp = int64(e.info.uiTimeStamp)
	info.Layers = make([]LayerBSInfo, int(e.info.iLayerNum))
	for i := range info.Layers {
		l := &e.info.sLayerInfo[i]
		lengths := unsafe.Slice((*C.int)(unsafe.Pointer(l.pNalLengthInByte)), int(l.iNalCount))

		out := &info.Layers[i]
		out.TemporalID = uint8(l.uiTemporalId)
		out.SpatialID = uint8(l.uiSpatialId)
		out.QualityID = uint8(l.uiQualityId)
		out.FrameType = FrameType(l.eFrameType)
		out.NalLengthInByte = make([]int, len(lengths))
		for j, n := range lengths {
			out.NalLengthInByte[j] = int(n)
		}
		out.BsBuf = unsafe.Slice((*byte)(unsafe.Pointer(l.pBsBuf)), out.Size())
	}
	return ResultSuccess
}

func (e *cgoEncoder) ForceIntraFrame(idr bool) Result {
	return Result(C.encForceIntraFrame(e.enc, cbool(idr)))
}

func (e *cgoEncoder) Uninitialize() Result {
	return Result(C.encUninitialize(e.enc))
}

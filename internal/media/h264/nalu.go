package h264

// NALU is a single H.264 NAL unit, without start code or length prefix.
type NALU []byte

// NAL unit types used here. See ITU-T H.264 table 7-1.
const (
	NALUTypeSlice = 1
	NALUTypeIDR   = 5
	NALUTypeSEI   = 6
	NALUTypeSPS   = 7
	NALUTypePPS   = 8
	NALUTypeAUD   = 9
)

func (nalu NALU) ForbiddenBit() byte {
	return nalu[0] & 0x80 >> 7
}

func (nalu NALU) NRI() byte {
	return nalu[0] & 0x60 >> 5
}

func (nalu NALU) Type() byte {
	return nalu[0] & 0x1f
}

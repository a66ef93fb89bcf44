// Package h264 inspects H.264 Annex B access units as produced by the encoder.
package h264

import (
	"encoding/binary"

	"github.com/nareix/joy4/codec/h264parser"
)

// Split returns the NAL units of an Annex B access unit. Input without start
// codes is returned as a single NAL unit.
func Split(frame []byte) []NALU {
	raw, _ := h264parser.SplitNALUs(frame)
	nalus := make([]NALU, 0, len(raw))
	for _, b := range raw {
		if len(b) > 0 {
			nalus = append(nalus, NALU(b))
		}
	}
	return nalus
}

// IsKeyFrame reports whether the access unit contains an IDR slice.
func IsKeyFrame(frame []byte) bool {
	for _, nalu := range Split(frame) {
		if nalu.Type() == NALUTypeIDR {
			return true
		}
	}
	return false
}

// ParameterSets returns the first SPS and PPS in the access unit, if any.
func ParameterSets(frame []byte) (sps, pps NALU) {
	for _, nalu := range Split(frame) {
		switch nalu.Type() {
		case NALUTypeSPS:
			if sps == nil {
				sps = nalu
			}
		case NALUTypePPS:
			if pps == nil {
				pps = nalu
			}
		}
	}
	return
}

// ToAVCC rewrites an access unit with 4-byte big endian length prefixes in
// place of start codes. Parameter sets and access unit delimiters are dropped
// when dropParams is set, since MP4 carries them in the sample description.
func ToAVCC(frame []byte, dropParams bool) []byte {
	nalus := Split(frame)
	n := 0
	for _, nalu := range nalus {
		n += 4 + len(nalu)
	}
	out := make([]byte, 0, n)
	var prefix [4]byte
	for _, nalu := range nalus {
		if dropParams {
			switch nalu.Type() {
			case NALUTypeSPS, NALUTypePPS, NALUTypeAUD:
				continue
			}
		}
		binary.BigEndian.PutUint32(prefix[:], uint32(len(nalu)))
		out = append(out, prefix[:]...)
		out = append(out, nalu...)
	}
	return out
}

// Info is the stream description carried by an SPS.
type Info struct {
	Width, Height int
	Profile       uint
	Level         uint
}

// ParseSPS decodes the picture size and profile from an SPS.
func ParseSPS(sps NALU) (Info, error) {
	s, err := h264parser.ParseSPS(sps)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Width:   int(s.Width),
		Height:  int(s.Height),
		Profile: s.ProfileIdc,
		Level:   s.LevelIdc,
	}, nil
}

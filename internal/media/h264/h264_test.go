package h264

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Baseline profile, level 1.1, 176x144, POC type 2, no VUI.
var (
	testSPS = []byte{0x67, 0x42, 0xc0, 0x0b, 0xda, 0x0b, 0x13, 0x90}
	testPPS = []byte{0x68, 0xce, 0x3c, 0x80}
	testIDR = []byte{0x65, 0xb8, 0x00, 0x04, 0x00, 0x00}
	testP   = []byte{0x41, 0x9a, 0x02, 0x04}
)

func annexB(nalus ...[]byte) []byte {
	var b []byte
	for _, n := range nalus {
		b = append(b, 0, 0, 0, 1)
		b = append(b, n...)
	}
	return b
}

func TestNALUHeader(t *testing.T) {
	nalu := NALU(testIDR)
	assert.Equal(t, byte(0), nalu.ForbiddenBit())
	assert.Equal(t, byte(3), nalu.NRI())
	assert.Equal(t, byte(NALUTypeIDR), nalu.Type())
}

func TestSplit(t *testing.T) {
	nalus := Split(annexB(testSPS, testPPS, testIDR))
	require.Len(t, nalus, 3)
	assert.Equal(t, NALU(testSPS), nalus[0])
	assert.Equal(t, NALU(testPPS), nalus[1])
	assert.Equal(t, NALU(testIDR), nalus[2])
}

func TestIsKeyFrame(t *testing.T) {
	assert.True(t, IsKeyFrame(annexB(testSPS, testPPS, testIDR)))
	assert.False(t, IsKeyFrame(annexB(testP)))
	assert.False(t, IsKeyFrame(nil))
}

func TestParameterSets(t *testing.T) {
	sps, pps := ParameterSets(annexB(testSPS, testPPS, testIDR))
	assert.Equal(t, NALU(testSPS), sps)
	assert.Equal(t, NALU(testPPS), pps)

	sps, pps = ParameterSets(annexB(testP))
	assert.Nil(t, sps)
	assert.Nil(t, pps)
}

func TestToAVCC(t *testing.T) {
	frame := annexB(testSPS, testPPS, testIDR)

	all := ToAVCC(frame, false)
	assert.Equal(t, 3*4+len(testSPS)+len(testPPS)+len(testIDR), len(all))
	assert.EqualValues(t, len(testSPS), binary.BigEndian.Uint32(all))

	slices := ToAVCC(frame, true)
	require.Len(t, slices, 4+len(testIDR))
	assert.EqualValues(t, len(testIDR), binary.BigEndian.Uint32(slices))
	assert.Equal(t, testIDR, slices[4:])
}

func TestReader(t *testing.T) {
	stream := append(annexB(testSPS, testPPS), 0, 0, 1)
	stream = append(stream, testIDR...)
	r := NewReader(bytes.NewReader(stream))

	var got []NALU
	for {
		nalu, err := r.ReadNALU()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, append(NALU(nil), nalu...))
	}
	assert.Equal(t, []NALU{testSPS, testPPS, testIDR}, got)
}

func TestParseSPS(t *testing.T) {
	info, err := ParseSPS(testSPS)
	require.NoError(t, err)
	assert.Equal(t, 176, info.Width)
	assert.Equal(t, 144, info.Height)
	assert.EqualValues(t, 66, info.Profile)
	assert.EqualValues(t, 11, info.Level)
}

package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	w := NewWriterSize(20)
	w.WriteByte(0x80)
	w.WriteUint16(0x1234)
	w.WriteUint24(0xabcdef)
	w.WriteUint32(0xdeadbeef)
	w.WriteUint64(0x0102030405060708)
	require.NoError(t, w.WriteSlice([]byte{9, 10}))
	assert.Equal(t, 20, w.Length())
	assert.Equal(t, 0, w.Available())
	assert.Error(t, w.WriteSlice([]byte{11}))

	r := NewReader(w.Bytes())
	assert.Equal(t, byte(0x80), r.ReadByte())
	assert.Equal(t, uint16(0x1234), r.ReadUint16())
	assert.Equal(t, uint32(0xabcdef), r.ReadUint24())
	assert.Equal(t, uint32(0xdeadbeef), r.ReadUint32())
	r.Skip(4)
	assert.Equal(t, uint32(0x05060708), r.ReadUint32())
	assert.NoError(t, r.CheckRemaining(2))
	assert.Error(t, r.CheckRemaining(3))
	assert.Equal(t, []byte{9, 10}, r.ReadSlice(2))
	assert.Equal(t, 0, r.Remaining())

	w.Reset()
	assert.Empty(t, w.Bytes())
}

func TestCheckCapacityCountsWrittenBytes(t *testing.T) {
	w := NewWriterSize(8)
	w.WriteUint32(1)
	assert.NoError(t, w.CheckCapacity(4))
	assert.Error(t, w.CheckCapacity(5))
}

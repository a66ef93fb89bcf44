package vpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVP8KeyFrame(t *testing.T) {
	assert.True(t, IsVP8KeyFrame([]byte{0x50, 0x42, 0x00, 0x9d, 0x01, 0x2a}))
	assert.False(t, IsVP8KeyFrame([]byte{0x51, 0x42, 0x00}))
	assert.False(t, IsVP8KeyFrame(nil))
}

func TestIsVP9KeyFrame(t *testing.T) {
	// marker 10, profile 0, show_existing 0, frame_type 0
	assert.True(t, IsVP9KeyFrame([]byte{0x82, 0x49, 0x83}))
	// frame_type 1
	assert.False(t, IsVP9KeyFrame([]byte{0x86}))
	// show_existing_frame
	assert.False(t, IsVP9KeyFrame([]byte{0x88}))
	// bad marker
	assert.False(t, IsVP9KeyFrame([]byte{0x02}))
}

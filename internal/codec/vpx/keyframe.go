// Package vpx registers the VP8 and VP9 codecs. The encoders need libvpx and
// are only built with the vpx tag; the bitstream helpers here are always
// available.
package vpx

// IsVP8KeyFrame reports whether frame starts a VP8 key frame (RFC 6386
// section 9.1: bit 0 of the frame tag is 0 for key frames).
func IsVP8KeyFrame(frame []byte) bool {
	return len(frame) >= 3 && frame[0]&0x01 == 0
}

// IsVP9KeyFrame parses the start of a VP9 uncompressed header.
func IsVP9KeyFrame(frame []byte) bool {
	if len(frame) < 1 {
		return false
	}
	b := frame[0]
	if b>>6 != 0x2 { // frame_marker
		return false
	}
	profile := (b>>5)&1 | (b>>4)&1<<1
	bit := uint(3)
	if profile == 3 {
		bit-- // reserved_zero
	}
	if (b>>bit)&1 == 1 { // show_existing_frame
		return false
	}
	bit--
	return (b>>bit)&1 == 0 // frame_type
}

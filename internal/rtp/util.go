package rtp

// Convenience functions for dealing with RTCP packet formats. For example, the
// first byte of the RTCP header:
//    0 1 2 3 4 5 6 7
//   +-+-+-+-+-+-+-+-+
//	 |V=2|P|  count  |
//	 +-+-+-+-+-+-+-+-+
// can be parsed with
//    V, P, count := splitByte215(header[0])
// and put back together with
//    header[0] = joinByte215(V, P, count)

// Split a byte into the first 2 bits, the next bit, and the remaining 5 bits.
func splitByte215(v byte) (a2 byte, b1 bool, c5 byte) {
	a2 = v >> 6
	b1 = ((v >> 5) & 0x01) == 1
	c5 = v & 0x1f
	return
}

func joinByte215(a2 byte, b1 bool, c5 byte) byte {
	v := (a2 << 6) | (c5 & 0x1f)
	if b1 {
		v |= 0x20
	}
	return v
}

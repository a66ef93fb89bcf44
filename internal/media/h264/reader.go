package h264

import (
	"bufio"
	"bytes"
	"io"
)

// Reader scans NAL units from an Annex B byte stream, such as a raw .h264
// file.
type Reader struct {
	scanner *bufio.Scanner
}

const (
	naluBufferInitialSize = 16 * 1024
	naluBufferMaximumSize = 1024 * 1024
)

func NewReader(in io.Reader) *Reader {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, naluBufferInitialSize), naluBufferMaximumSize)
	scanner.Split(splitNALU)
	return &Reader{scanner: scanner}
}

// ReadNALU returns the next NAL unit, valid until the following call. It
// returns io.EOF at the end of the stream.
func (r *Reader) ReadNALU() (NALU, error) {
	if r.scanner.Scan() {
		return r.scanner.Bytes(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

var startCode = []byte{0, 0, 1}

// Splits NAL units on H.264 Annex B start codes.
func splitNALU(data []byte, atEOF bool) (advance int, nalu []byte, err error) {
	i := bytes.Index(data, startCode)

	switch {
	case i == -1:
		if atEOF && len(data) > 0 {
			// Trailing NAL unit.
			return len(data), data, nil
		}
	case i == 0:
		// 3-byte start code (0x000001) found at data[0]. Skip these 3 bytes.
		advance = 3
	case i == 1 && data[0] == 0:
		// 4-byte start code (0x00000001) found at data[0]. Skip these 4 bytes.
		advance = 4
	default:
		// Next start code found at index i.
		advance = i + 3
		if data[i-1] == 0x00 {
			// 4-byte start code
			nalu = data[0 : i-1]
		} else {
			// 3-byte start code
			nalu = data[0:i]
		}
	}
	return
}

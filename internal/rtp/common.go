package rtp

// common.go contains generic logic that is common between RTP and RTCP (i.e.
// the data protocol and the control protocol).

import (
	"fmt"

	"github.com/lanikai/mediastream/internal/logging"
)

var log = logging.DefaultLogger.WithTag("rtp")

const (
	// RFC 3550 defines RTP version 2.
	rtpVersion = 2
)

type errBadVersion byte

func (e errBadVersion) Error() string {
	return fmt.Sprintf("invalid RTP version: %d", byte(e))
}

// Demultiplex RTP/RTCP. See https://tools.ietf.org/html/rfc5761#section-4.
func isRTCP(buf []byte) (bool, error) {
	if len(buf) < 8 {
		return false, fmt.Errorf("short RTP/RTCP packet: %02x", buf)
	}
	packetType := buf[1]
	return 192 <= packetType && packetType <= 223, nil
}

// Package media distributes encoded video to its consumers.
package media

import (
	"time"

	"github.com/lanikai/mediastream/internal/logging"
)

var log = logging.DefaultLogger.WithTag("media")

// Packet is one encoded frame. Data must not be modified once the packet has
// been put on a Flow, since subscribers share it.
type Packet struct {
	Data []byte

	// Presentation time, relative to the start of capture.
	Timestamp time.Duration

	// Whether the frame can be decoded without earlier frames.
	KeyFrame bool

	// Capture sequence number of the source frame.
	Sequence uint64
}

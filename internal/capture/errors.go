package capture

import "errors"

var (
	ErrClosed  = errors.New("capture: session closed")
	ErrStopped = errors.New("capture: session not running")
	ErrNoFrame = errors.New("capture: no frame captured yet")
)

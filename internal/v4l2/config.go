package v4l2

// Config holds device options that are not part of the capture format.
type Config struct {
	// Number of kernel buffers to request (default 4).
	NumBuffers int

	HFlip bool // Flip video horizontally
	VFlip bool // Flip video vertically
}

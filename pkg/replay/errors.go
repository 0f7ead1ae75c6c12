package replay

import "errors"

var (
	// ErrBadFrame is returned for a JSONL line that is not a landmarks frame.
	ErrBadFrame = errors.New("replay: malformed frame")

	// ErrNoFrames is returned when a recording holds nothing to send.
	ErrNoFrames = errors.New("replay: no frames")
)

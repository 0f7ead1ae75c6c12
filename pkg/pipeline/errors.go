package pipeline

import "errors"

var (
	// ErrSessionEnded is returned by Process after End.
	ErrSessionEnded = errors.New("pipeline: session ended")

	// ErrInvalidConfig wraps tuning validation problems.
	ErrInvalidConfig = errors.New("pipeline: invalid tuning config")
)

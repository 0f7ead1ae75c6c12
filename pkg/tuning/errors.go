package tuning

import "errors"

var (
	// ErrVersionMismatch is returned when a config file has an unsupported schema version.
	ErrVersionMismatch = errors.New("tuning: unsupported config version")

	// ErrInvalid is returned when a configuration fails validation.
	ErrInvalid = errors.New("tuning: invalid config")
)

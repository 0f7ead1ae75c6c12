package lighting

import "errors"

// ErrDecode is returned when a pixel buffer cannot be read.
var ErrDecode = errors.New("lighting: cannot decode pixels")

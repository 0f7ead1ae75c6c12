package face

import "errors"

// ErrMissingLandmarks is returned when a required landmark index is absent.
var ErrMissingLandmarks = errors.New("face: required landmarks missing")

package timeline

import "errors"

// ErrEmptySession is returned when a summary is requested before any frame
// was recorded.
var ErrEmptySession = errors.New("timeline: no session data")

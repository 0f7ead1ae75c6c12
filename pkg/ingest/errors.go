package ingest

import "errors"

// ErrSessionNotFound is returned for an unknown detector connection.
var ErrSessionNotFound = errors.New("ingest: detector session not found")

package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrNoReport is returned when no audit run has been persisted yet.
	ErrNoReport = errors.New("no report available")
)

package history

import "errors"

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("history: run not found")

	// ErrInvalidRun is returned when saving a run without ID or timestamps.
	ErrInvalidRun = errors.New("history: invalid run")
)

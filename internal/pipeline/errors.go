package pipeline

import "errors"

// ErrImportRunning is returned when a job is requested while another runs.
var ErrImportRunning = errors.New("pipeline: import already running")

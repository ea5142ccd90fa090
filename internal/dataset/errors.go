package dataset

import "errors"

// Sentinel errors for dataset validation and decoding.
var (
	// ErrUnorderedSeries indicates series timestamps are not strictly increasing.
	ErrUnorderedSeries = errors.New("dataset: series timestamps not strictly increasing")

	// ErrInvalidTimestamp indicates a dataframe key is not an epoch-millisecond integer.
	ErrInvalidTimestamp = errors.New("dataset: invalid timestamp key")

	// ErrInvalidBuilding indicates a building violates a structural invariant.
	ErrInvalidBuilding = errors.New("dataset: invalid building")

	// ErrBuildingNotFound indicates a lookup for an unknown building name.
	ErrBuildingNotFound = errors.New("dataset: building not found")

	// ErrSensorNotFound indicates a lookup for an unknown sensor type.
	ErrSensorNotFound = errors.New("dataset: sensor not found")
)

package importer

import "errors"

// Sentinel errors for import operations.
//
// Only ErrImportAborted (or a context error) is returned from Importer.Import.
// Source-level and entity-level errors are converted to Summary entries by the
// component that detects them.
var (
	// ErrImportAborted indicates the job produced no usable source data at all.
	ErrImportAborted = errors.New("importer: import aborted")

	// ErrMalformedSource indicates a file cannot be parsed as tabular data.
	ErrMalformedSource = errors.New("importer: malformed source")

	// ErrSchemaMismatch indicates a required structural column is absent.
	ErrSchemaMismatch = errors.New("importer: schema mismatch")

	// ErrConflictingMetadata indicates two rows disagree on a sensor's unit,
	// or two descriptors claim the same sensor type.
	ErrConflictingMetadata = errors.New("importer: conflicting metadata")

	// ErrEmptySeries indicates no usable reading remained for a sensor type.
	ErrEmptySeries = errors.New("importer: empty series")

	// ErrInvalidBuilding indicates every series of a building was dropped.
	ErrInvalidBuilding = errors.New("importer: invalid building")

	// ErrUnknownFormat indicates no format is registered for a source.
	ErrUnknownFormat = errors.New("importer: unknown source format")

	// ErrUnknownPolicy indicates an unregistered duplicate-resolution policy name.
	ErrUnknownPolicy = errors.New("importer: unknown duplicate policy")

	// ErrInvalidOptions indicates the importer configuration is unusable.
	ErrInvalidOptions = errors.New("importer: invalid options")
)

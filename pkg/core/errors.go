package core

import "errors"

// Sentinel errors shared across layers. Wrap them with fmt.Errorf("...: %w")
// and match with errors.Is.
var (
	// ErrNotFound is returned when no configuration was uploaded under a filename.
	ErrNotFound = errors.New("configuration not found")

	// ErrInvalidDocument is returned when an uploaded document cannot be parsed
	// or lacks the job_step fields.
	ErrInvalidDocument = errors.New("invalid configuration document")

	// ErrInvalidArgument is returned for missing or malformed request
	// parameters such as an empty filename.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStoreClosed is returned by stores used before Open or after Close.
	ErrStoreClosed = errors.New("database not opened")
)

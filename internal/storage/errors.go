package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a record required by a write does not exist.
	// Read methods report absence as a nil result instead.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

package ingestion

import "errors"

var (
	// ErrSourceUnavailable is returned by Subscribe when the initial connection
	// or handshake fails.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrStreamTerminated reports that a subscribed source closed a sequence
	// or failed mid-stream.
	ErrStreamTerminated = errors.New("stream terminated")
)

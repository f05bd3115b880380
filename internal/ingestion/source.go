package ingestion

import (
	"context"

	"solana-indexer/internal/domain"
)

// Source names used in logs and metrics.
const (
	SourceStreaming = "streaming"
	SourcePolling   = "polling"
)

// SlotEvent is one element of a source's slot sequence. Transactions attached
// to the event belong to the slot and are handled before Record.
type SlotEvent struct {
	Record       *domain.SlotRecord
	Transactions []domain.TransactionDetail
}

// Subscription is the pair of sequences produced by a subscribed source.
// Closing either sequence ends the subscription. Errors carries at most one
// terminal error and may be nil.
type Subscription struct {
	Slots        <-chan SlotEvent
	Transactions <-chan domain.TransactionDetail
	Errors       <-chan error
}

// Source produces slot and transaction sequences from the chain.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Subscribe connects and starts producing. It returns an error wrapping
	// ErrSourceUnavailable when the initial connection fails.
	Subscribe(ctx context.Context) (*Subscription, error)

	// Close stops production and releases the connection. Safe to call more than once.
	Close() error
}

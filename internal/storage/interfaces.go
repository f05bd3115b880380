package storage

import (
	"context"

	"solana-indexer/internal/domain"
)

// SlotStore provides access to slots storage.
type SlotStore interface {
	// StoreSlot upserts a slot by number. Last write wins.
	StoreSlot(ctx context.Context, number uint64, timestamp int64, parent *uint64, status domain.SlotStatus) error

	// GetSlot retrieves a slot by number. Returns nil, nil if absent.
	GetSlot(ctx context.Context, number uint64) (*domain.SlotRecord, error)

	// GetLatestSlot retrieves the slot with the highest number. Returns nil, nil if empty.
	GetLatestSlot(ctx context.Context) (*domain.SlotRecord, error)
}

// TransactionStore provides access to transactions storage.
type TransactionStore interface {
	// StoreTransaction upserts a transaction by signature.
	StoreTransaction(ctx context.Context, tx *domain.TransactionRecord) error

	// GetTransaction retrieves a transaction by signature. Returns nil, nil if absent.
	GetTransaction(ctx context.Context, signature string) (*domain.TransactionRecord, error)
}

// AccountStore provides access to accounts storage.
type AccountStore interface {
	// StoreAccount upserts the latest account state by address.
	StoreAccount(ctx context.Context, a *domain.AccountState) error

	// GetAccount retrieves an account by address. Returns nil, nil if absent.
	GetAccount(ctx context.Context, address string) (*domain.AccountState, error)
}

// WatchStore provides access to the watch-list.
type WatchStore interface {
	// AddWatch upserts an entry and marks it active.
	AddWatch(ctx context.Context, address string, name *string) error

	// RemoveWatch marks an entry inactive. The row is kept.
	// Returns ErrNotFound if the address was never added.
	RemoveWatch(ctx context.Context, address string) error

	// ListWatches returns entries ordered by created_at DESC.
	ListWatches(ctx context.Context, activeOnly bool) ([]*domain.WatchEntry, error)

	// GetActiveWatchAddresses returns addresses of active entries.
	GetActiveWatchAddresses(ctx context.Context) ([]string, error)
}

// Store is the persistent store consumed by the cache and the watcher.
// Implementations must be safe for concurrent use; conflicting upserts
// to the same key resolve as last write wins.
type Store interface {
	SlotStore
	TransactionStore
	AccountStore
	WatchStore

	// Close releases backend resources.
	Close() error
}

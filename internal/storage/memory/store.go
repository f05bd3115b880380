package memory

import (
	"sync"
	"time"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
// All reads return copies; the store never hands out its own records.
type Store struct {
	mu           sync.RWMutex
	slots        map[uint64]*domain.SlotRecord
	transactions map[string]*domain.TransactionRecord
	accounts     map[string]*domain.AccountState
	watches      map[string]*watchRow
	seq          int64 // insertion sequence for stable ordering of equal created_at

	nowFn func() time.Time
}

type watchRow struct {
	entry domain.WatchEntry
	seq   int64
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		slots:        make(map[uint64]*domain.SlotRecord),
		transactions: make(map[string]*domain.TransactionRecord),
		accounts:     make(map[string]*domain.AccountState),
		watches:      make(map[string]*watchRow),
		nowFn:        time.Now,
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)

package memory

import (
	"context"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// StoreTransaction upserts a transaction by signature.
func (s *Store) StoreTransaction(_ context.Context, tx *domain.TransactionRecord) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[tx.Signature] = tx.Clone()
	return nil
}

// GetTransaction retrieves a transaction by signature. Returns nil, nil if absent.
func (s *Store) GetTransaction(_ context.Context, signature string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[signature]
	if !ok {
		return nil, nil
	}
	return tx.Clone(), nil
}

package memory

import (
	"context"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// StoreAccount upserts the latest account state by address.
func (s *Store) StoreAccount(_ context.Context, a *domain.AccountState) error {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[a.Address] = a.Clone()
	return nil
}

// GetAccount retrieves an account by address. Returns nil, nil if absent.
func (s *Store) GetAccount(_ context.Context, address string) (*domain.AccountState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[address]
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

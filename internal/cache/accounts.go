package cache

import (
	"context"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// AccountTier is the L3 tier. It keeps no state of its own and delegates
// to the persistent store.
type AccountTier struct {
	store storage.AccountStore
}

// NewAccountTier creates an L3 tier over store.
func NewAccountTier(store storage.AccountStore) *AccountTier {
	return &AccountTier{store: store}
}

// Get returns the stored account, or nil when absent.
func (a *AccountTier) Get(ctx context.Context, address string) (*domain.AccountState, error) {
	return a.store.GetAccount(ctx, address)
}

// Insert upserts the account state.
func (a *AccountTier) Insert(ctx context.Context, state *domain.AccountState) error {
	return a.store.StoreAccount(ctx, state)
}

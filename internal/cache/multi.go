package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/observability"
	"solana-indexer/internal/storage"
)

// Tier labels used in metrics.
const (
	tierL1 = "l1"
	tierL2 = "l2"
)

// Options configures MultiTierCache.
type Options struct {
	Store      storage.Store
	L1Capacity int
	L2Capacity int
	L2TTL      time.Duration
	Logger     *zap.Logger
}

// MultiTierCache writes slots through L1 and transactions through L2 to the
// persistent store, and serves accounts from L3. Cache writes never fail;
// store failures are returned to the caller after the cache is updated.
type MultiTierCache struct {
	store  storage.Store
	l1     *HotSlots
	l2     *TransactionCache
	l3     *AccountTier
	logger *zap.Logger
}

// New creates a MultiTierCache sharing opts.Store with its L3 tier.
func New(opts Options) (*MultiTierCache, error) {
	if opts.Store == nil {
		return nil, errors.New("cache: store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MultiTierCache{
		store:  opts.Store,
		l1:     NewHotSlots(opts.L1Capacity),
		l2:     NewTransactionCache(opts.L2Capacity, opts.L2TTL),
		l3:     NewAccountTier(opts.Store),
		logger: logger.Named("cache"),
	}, nil
}

// StoreSlot writes rec to L1 and then to the store, even if the number is
// already cached.
func (c *MultiTierCache) StoreSlot(ctx context.Context, rec *domain.SlotRecord) error {
	if evicted, ok := c.l1.Insert(rec); ok {
		c.logger.Debug("evicted slot from L1", zap.Uint64("slot", evicted))
	}
	observability.SetL1Entries(c.l1.Len())

	if err := c.store.StoreSlot(ctx, rec.Number, rec.Timestamp, rec.Parent, rec.Status); err != nil {
		return fmt.Errorf("store slot %d: %w", rec.Number, err)
	}
	return nil
}

// StoreTransaction writes tx to L2 and then to the store.
func (c *MultiTierCache) StoreTransaction(ctx context.Context, tx *domain.TransactionRecord) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}
	c.l2.Insert(tx)

	if err := c.store.StoreTransaction(ctx, tx); err != nil {
		return fmt.Errorf("store transaction %s: %w", tx.Signature, err)
	}
	return nil
}

// GetSlot returns a slot from L1, falling back to the store.
func (c *MultiTierCache) GetSlot(ctx context.Context, number uint64) (*domain.SlotRecord, error) {
	if rec := c.l1.Get(number); rec != nil {
		observability.RecordCacheLookup(tierL1, true)
		return rec, nil
	}
	observability.RecordCacheLookup(tierL1, false)
	return c.store.GetSlot(ctx, number)
}

// LatestSlot returns the highest cached slot, falling back to the store when L1 is empty.
func (c *MultiTierCache) LatestSlot(ctx context.Context) (*domain.SlotRecord, error) {
	if rec := c.l1.Latest(); rec != nil {
		return rec, nil
	}
	return c.store.GetLatestSlot(ctx)
}

// RecentSlots returns the L1 contents in ascending order.
func (c *MultiTierCache) RecentSlots() []*domain.SlotRecord {
	return c.l1.All()
}

// GetTransaction returns a transaction from L2, falling back to the store.
// A store hit is not promoted into L2.
func (c *MultiTierCache) GetTransaction(ctx context.Context, signature string) (*domain.TransactionRecord, error) {
	if tx := c.l2.Get(signature); tx != nil {
		observability.RecordCacheLookup(tierL2, true)
		return tx, nil
	}
	observability.RecordCacheLookup(tierL2, false)
	return c.store.GetTransaction(ctx, signature)
}

// GetAccount delegates to L3.
func (c *MultiTierCache) GetAccount(ctx context.Context, address string) (*domain.AccountState, error) {
	return c.l3.Get(ctx, address)
}

// StoreAccount delegates to L3.
func (c *MultiTierCache) StoreAccount(ctx context.Context, state *domain.AccountState) error {
	return c.l3.Insert(ctx, state)
}

// HotSlots exposes the L1 tier.
func (c *MultiTierCache) HotSlots() *HotSlots { return c.l1 }

// Transactions exposes the L2 tier.
func (c *MultiTierCache) Transactions() *TransactionCache { return c.l2 }

package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"solana-indexer/internal/domain"
)

// L2 defaults.
const (
	DefaultL2Capacity = 10000
	DefaultL2TTL      = time.Hour
)

// TransactionCache is the L2 tier: bounded by capacity with least recently
// used eviction, and every entry expires TTL after insertion.
// A read after expiry is a miss.
type TransactionCache struct {
	lru *expirable.LRU[string, *domain.TransactionRecord]
	ttl time.Duration
}

// NewTransactionCache creates an L2 tier. Non-positive values use the defaults.
// The underlying expirable LRU runs a purge goroutine for the life of the
// process and cannot be stopped, so create one cache per process.
func NewTransactionCache(capacity int, ttl time.Duration) *TransactionCache {
	if capacity <= 0 {
		capacity = DefaultL2Capacity
	}
	if ttl <= 0 {
		ttl = DefaultL2TTL
	}
	return &TransactionCache{
		lru: expirable.NewLRU[string, *domain.TransactionRecord](capacity, nil, ttl),
		ttl: ttl,
	}
}

// Insert upserts tx by signature and restarts its TTL.
func (c *TransactionCache) Insert(tx *domain.TransactionRecord) {
	c.lru.Add(tx.Signature, tx.Clone())
}

// Get returns the cached transaction, or nil on miss or expiry.
func (c *TransactionCache) Get(signature string) *domain.TransactionRecord {
	tx, ok := c.lru.Get(signature)
	if !ok {
		return nil
	}
	return tx.Clone()
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *TransactionCache) Len() int {
	return c.lru.Len()
}

// TTL returns the configured time-to-live.
func (c *TransactionCache) TTL() time.Duration {
	return c.ttl
}

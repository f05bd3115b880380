package cache

import (
	"fmt"
	"testing"
	"time"

	"solana-indexer/internal/domain"
)

func tx(sig string) *domain.TransactionRecord {
	return &domain.TransactionRecord{Signature: sig, Slot: 1, Fee: 5000, Success: true, Accounts: []string{"a"}}
}

func TestTransactionCache_TTL(t *testing.T) {
	const ttl = 200 * time.Millisecond
	c := NewTransactionCache(10, ttl)

	c.Insert(tx("sig"))

	time.Sleep(ttl - 100*time.Millisecond)
	if c.Get("sig") == nil {
		t.Fatal("expected entry before TTL")
	}

	time.Sleep(200 * time.Millisecond)
	if c.Get("sig") != nil {
		t.Fatal("expected miss after TTL")
	}
}

func TestTransactionCache_Capacity(t *testing.T) {
	c := NewTransactionCache(3, time.Hour)
	for i := 0; i < 5; i++ {
		c.Insert(tx(fmt.Sprintf("sig%d", i)))
	}

	if c.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Len())
	}
	if c.Get("sig0") != nil || c.Get("sig1") != nil {
		t.Error("expected oldest entries evicted")
	}
	if c.Get("sig4") == nil {
		t.Error("expected newest entry present")
	}
}

func TestTransactionCache_Upsert(t *testing.T) {
	c := NewTransactionCache(0, 0)
	if c.TTL() != DefaultL2TTL {
		t.Errorf("expected default TTL, got %v", c.TTL())
	}

	c.Insert(tx("sig"))
	c.Insert(tx("sig"))
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after duplicate insert, got %d", c.Len())
	}

	failed := tx("sig")
	failed.Success = false
	c.Insert(failed)
	if got := c.Get("sig"); got == nil || got.Success {
		t.Errorf("expected overwritten entry, got %+v", got)
	}
}

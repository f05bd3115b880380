// Package cache implements the three cache tiers between the ingestion
// pipeline and persistent storage.
package cache

import (
	"sync"

	"github.com/google/btree"

	"solana-indexer/internal/domain"
)

// DefaultL1Capacity is the default number of slots kept in HotSlots.
const DefaultL1Capacity = 1000

// btreeDegree is the node degree of the slot index.
const btreeDegree = 32

// HotSlots is the L1 tier: a bounded index of slots ordered by number.
// At capacity, inserting a new number evicts the smallest number present.
type HotSlots struct {
	mu       sync.RWMutex
	tree     *btree.BTreeG[*domain.SlotRecord]
	capacity int
}

// NewHotSlots creates an L1 tier. Non-positive capacity uses DefaultL1Capacity.
func NewHotSlots(capacity int) *HotSlots {
	if capacity <= 0 {
		capacity = DefaultL1Capacity
	}
	return &HotSlots{
		tree: btree.NewG(btreeDegree, func(a, b *domain.SlotRecord) bool {
			return a.Number < b.Number
		}),
		capacity: capacity,
	}
}

// Insert upserts rec. Returns the evicted slot number, if any.
func (h *HotSlots) Insert(rec *domain.SlotRecord) (evicted uint64, ok bool) {
	item := rec.Clone()

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.tree.Get(item); !exists && h.tree.Len() >= h.capacity {
		if oldest, deleted := h.tree.DeleteMin(); deleted {
			evicted, ok = oldest.Number, true
		}
	}
	h.tree.ReplaceOrInsert(item)
	return evicted, ok
}

// Get returns the cached slot, or nil.
func (h *HotSlots) Get(number uint64) *domain.SlotRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.tree.Get(&domain.SlotRecord{Number: number})
	if !ok {
		return nil
	}
	return rec.Clone()
}

// Latest returns the slot with the highest number, or nil when empty.
func (h *HotSlots) Latest() *domain.SlotRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.tree.Max()
	if !ok {
		return nil
	}
	return rec.Clone()
}

// All returns every cached slot in ascending number order.
func (h *HotSlots) All() []*domain.SlotRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*domain.SlotRecord, 0, h.tree.Len())
	h.tree.Ascend(func(rec *domain.SlotRecord) bool {
		out = append(out, rec.Clone())
		return true
	})
	return out
}

// Len returns the number of cached slots.
func (h *HotSlots) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tree.Len()
}

// Capacity returns the configured capacity.
func (h *HotSlots) Capacity() int {
	return h.capacity
}

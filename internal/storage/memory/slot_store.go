package memory

import (
	"context"

	"solana-indexer/internal/domain"
)

// StoreSlot upserts a slot by number.
// Block hash and height are not part of the durable row.
func (s *Store) StoreSlot(_ context.Context, number uint64, timestamp int64, parent *uint64, status domain.SlotStatus) error {
	rec := &domain.SlotRecord{
		Number:    number,
		Status:    status,
		Timestamp: timestamp,
	}
	if parent != nil {
		p := *parent
		rec.Parent = &p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[number] = rec
	return nil
}

// GetSlot retrieves a slot by number. Returns nil, nil if absent.
func (s *Store) GetSlot(_ context.Context, number uint64) (*domain.SlotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.slots[number]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

// GetLatestSlot retrieves the slot with the highest number.
func (s *Store) GetLatestSlot(_ context.Context) (*domain.SlotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.SlotRecord
	for _, rec := range s.slots {
		if latest == nil || rec.Number > latest.Number {
			latest = rec
		}
	}
	return latest.Clone(), nil
}

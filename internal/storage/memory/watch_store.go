package memory

import (
	"context"
	"sort"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// AddWatch upserts an entry, marks it active and resets created_at.
func (s *Store) AddWatch(_ context.Context, address string, name *string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	var nameCopy *string
	if name != nil {
		n := *name
		nameCopy = &n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.watches[address] = &watchRow{
		entry: domain.WatchEntry{
			Address:     address,
			DisplayName: nameCopy,
			Active:      true,
			CreatedAt:   s.nowFn().Unix(),
		},
		seq: s.seq,
	}
	return nil
}

// RemoveWatch marks an entry inactive.
func (s *Store) RemoveWatch(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.watches[address]
	if !ok {
		return storage.ErrNotFound
	}
	row.entry.Active = false
	return nil
}

// ListWatches returns entries ordered by created_at DESC.
func (s *Store) ListWatches(_ context.Context, activeOnly bool) ([]*domain.WatchEntry, error) {
	s.mu.RLock()
	rows := make([]*watchRow, 0, len(s.watches))
	for _, row := range s.watches {
		if activeOnly && !row.entry.Active {
			continue
		}
		rows = append(rows, row)
	}
	s.mu.RUnlock()

	sortWatchRows(rows)

	result := make([]*domain.WatchEntry, len(rows))
	for i, row := range rows {
		e := row.entry
		if e.DisplayName != nil {
			n := *e.DisplayName
			e.DisplayName = &n
		}
		result[i] = &e
	}
	return result, nil
}

// GetActiveWatchAddresses returns addresses of active entries.
func (s *Store) GetActiveWatchAddresses(ctx context.Context) ([]string, error) {
	entries, err := s.ListWatches(ctx, true)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, len(entries))
	for i, e := range entries {
		addrs[i] = e.Address
	}
	return addrs, nil
}

// sortWatchRows orders by created_at DESC, newest insertion first on ties.
func sortWatchRows(rows []*watchRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.CreatedAt != rows[j].entry.CreatedAt {
			return rows[i].entry.CreatedAt > rows[j].entry.CreatedAt
		}
		return rows[i].seq > rows[j].seq
	})
}

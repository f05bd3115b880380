package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// AddWatch upserts an entry, marks it active and resets created_at.
func (s *Store) AddWatch(ctx context.Context, address string, name *string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	return s.writeWatch(ctx, &domain.WatchEntry{
		Address:     address,
		DisplayName: name,
		Active:      true,
		CreatedAt:   time.Now().Unix(),
	})
}

// RemoveWatch marks an entry inactive by writing a newer row version.
// Returns storage.ErrNotFound for unknown addresses.
func (s *Store) RemoveWatch(ctx context.Context, address string) error {
	query := `
		SELECT address, name, is_active, created_at
		FROM wallets FINAL
		WHERE address = ?
		LIMIT 1
	`

	var e domain.WatchEntry
	err := s.conn.QueryRow(ctx, query, address).Scan(&e.Address, &e.DisplayName, &e.Active, &e.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("remove watch %s: %w", address, err)
	}

	e.Active = false
	return s.writeWatch(ctx, &e)
}

func (s *Store) writeWatch(ctx context.Context, e *domain.WatchEntry) error {
	query := `
		INSERT INTO wallets (address, name, is_active, created_at, version)
		VALUES (?, ?, ?, ?, ?)
	`
	if err := s.conn.Exec(ctx, query, e.Address, e.DisplayName, e.Active, e.CreatedAt, s.nextVersion()); err != nil {
		return fmt.Errorf("write watch %s: %w", e.Address, err)
	}
	return nil
}

// ListWatches returns entries ordered by created_at DESC.
func (s *Store) ListWatches(ctx context.Context, activeOnly bool) ([]*domain.WatchEntry, error) {
	query := `
		SELECT address, name, is_active, created_at
		FROM wallets FINAL
		WHERE is_active OR NOT ?
		ORDER BY created_at DESC, address ASC
	`

	rows, err := s.conn.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}
	defer rows.Close()

	var result []*domain.WatchEntry
	for rows.Next() {
		var e domain.WatchEntry
		if err := rows.Scan(&e.Address, &e.DisplayName, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watches: %w", err)
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

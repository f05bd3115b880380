package postgres

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

	query := `
		INSERT INTO wallets (address, name, is_active, created_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			is_active = TRUE,
			created_at = EXCLUDED.created_at
	`

	if _, err := s.pool.Exec(ctx, query, address, name, time.Now().Unix()); err != nil {
		return fmt.Errorf("add watch %s: %w", address, err)
	}
	return nil
}

// RemoveWatch marks an entry inactive. Returns storage.ErrNotFound for unknown addresses.
func (s *Store) RemoveWatch(ctx context.Context, address string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE wallets SET is_active = FALSE WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("remove watch %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListWatches returns entries ordered by created_at DESC.
func (s *Store) ListWatches(ctx context.Context, activeOnly bool) ([]*domain.WatchEntry, error) {
	query := `
		SELECT address, name, is_active, created_at
		FROM wallets
		WHERE is_active OR NOT $1
		ORDER BY created_at DESC, address
	`

	rows, err := s.pool.Query(ctx, query, activeOnly)
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
	rows, err := s.pool.Query(ctx, `SELECT address FROM wallets WHERE is_active ORDER BY created_at DESC, address`)
	if err != nil {
		return nil, fmt.Errorf("get active watch addresses: %w", err)
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan watch address: %w", err)
		}
		addrs = append(addrs, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch addresses: %w", err)
	}
	return addrs, nil
}

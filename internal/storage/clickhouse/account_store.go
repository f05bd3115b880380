package clickhouse

import (
	"context"
	"fmt"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// StoreAccount upserts the latest account state by address.
func (s *Store) StoreAccount(ctx context.Context, a *domain.AccountState) error {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO accounts (address, slot, lamports, owner, executable, data, rent_epoch, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		a.Address,
		a.Slot,
		a.Lamports,
		a.Owner,
		a.Executable,
		string(a.Data),
		a.RentEpoch,
		s.nextVersion(),
	)
	if err != nil {
		return fmt.Errorf("store account %s: %w", a.Address, err)
	}
	return nil
}

// GetAccount retrieves an account by address. Returns nil, nil if absent.
func (s *Store) GetAccount(ctx context.Context, address string) (*domain.AccountState, error) {
	query := `
		SELECT address, slot, lamports, owner, executable, data, rent_epoch
		FROM accounts FINAL
		WHERE address = ?
		LIMIT 1
	`

	var (
		a    domain.AccountState
		data string
	)
	err := s.conn.QueryRow(ctx, query, address).Scan(
		&a.Address,
		&a.Slot,
		&a.Lamports,
		&a.Owner,
		&a.Executable,
		&data,
		&a.RentEpoch,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	a.Data = []byte(data)
	return &a, nil
}

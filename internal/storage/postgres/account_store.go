package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// StoreAccount upserts the latest account state by address.
// rent_epoch is NUMERIC since rent-exempt accounts report u64 max.
func (s *Store) StoreAccount(ctx context.Context, a *domain.AccountState) error {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO accounts (address, slot, lamports, owner, executable, data, rent_epoch, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8)
		ON CONFLICT (address) DO UPDATE SET
			slot = EXCLUDED.slot,
			lamports = EXCLUDED.lamports,
			owner = EXCLUDED.owner,
			executable = EXCLUDED.executable,
			data = EXCLUDED.data,
			rent_epoch = EXCLUDED.rent_epoch,
			updated_at = EXCLUDED.updated_at
	`

	data := a.Data
	if data == nil {
		data = []byte{}
	}

	_, err := s.pool.Exec(ctx, query,
		a.Address,
		int64(a.Slot),
		int64(a.Lamports),
		a.Owner,
		a.Executable,
		data,
		strconv.FormatUint(a.RentEpoch, 10),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store account %s: %w", a.Address, err)
	}
	return nil
}

// GetAccount retrieves an account by address. Returns nil, nil if absent.
func (s *Store) GetAccount(ctx context.Context, address string) (*domain.AccountState, error) {
	query := `
		SELECT address, slot, lamports, owner, executable, data, rent_epoch::text
		FROM accounts
		WHERE address = $1
	`

	var (
		a         domain.AccountState
		slot      int64
		lamports  int64
		rentEpoch string
	)
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&a.Address,
		&slot,
		&lamports,
		&a.Owner,
		&a.Executable,
		&a.Data,
		&rentEpoch,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}

	a.Slot = uint64(slot)
	a.Lamports = uint64(lamports)
	a.RentEpoch, err = strconv.ParseUint(rentEpoch, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse rent epoch for %s: %w", address, err)
	}
	return &a, nil
}

package postgres

import (
	"context"
	"fmt"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/storage"
)

// StoreTransaction upserts a transaction by signature.
func (s *Store) StoreTransaction(ctx context.Context, tx *domain.TransactionRecord) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transactions (signature, slot, block_time, fee, success, accounts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (signature) DO UPDATE SET
			slot = EXCLUDED.slot,
			block_time = EXCLUDED.block_time,
			fee = EXCLUDED.fee,
			success = EXCLUDED.success,
			accounts = EXCLUDED.accounts
	`

	accounts := tx.Accounts
	if accounts == nil {
		accounts = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		tx.Signature,
		int64(tx.Slot),
		tx.BlockTime,
		int64(tx.Fee),
		tx.Success,
		accounts,
	)
	if err != nil {
		return fmt.Errorf("store transaction %s: %w", tx.Signature, err)
	}
	return nil
}

// GetTransaction retrieves a transaction by signature. Returns nil, nil if absent.
func (s *Store) GetTransaction(ctx context.Context, signature string) (*domain.TransactionRecord, error) {
	query := `
		SELECT signature, slot, block_time, fee, success, accounts
		FROM transactions
		WHERE signature = $1
	`

	var (
		tx   domain.TransactionRecord
		slot int64
		fee  int64
	)
	err := s.pool.QueryRow(ctx, query, signature).Scan(
		&tx.Signature,
		&slot,
		&tx.BlockTime,
		&fee,
		&tx.Success,
		&tx.Accounts,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	tx.Slot = uint64(slot)
	tx.Fee = uint64(fee)
	return &tx, nil
}

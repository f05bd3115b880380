package clickhouse

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

	accounts := tx.Accounts
	if accounts == nil {
		accounts = []string{}
	}

	query := `
		INSERT INTO transactions (signature, slot, block_time, fee, success, accounts, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		tx.Signature,
		tx.Slot,
		tx.BlockTime,
		tx.Fee,
		tx.Success,
		accounts,
		s.nextVersion(),
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
		FROM transactions FINAL
		WHERE signature = ?
		LIMIT 1
	`

	var tx domain.TransactionRecord
	err := s.conn.QueryRow(ctx, query, signature).Scan(
		&tx.Signature,
		&tx.Slot,
		&tx.BlockTime,
		&tx.Fee,
		&tx.Success,
		&tx.Accounts,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	return &tx, nil
}

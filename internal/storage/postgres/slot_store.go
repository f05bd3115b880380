package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-indexer/internal/domain"
)

// StoreSlot upserts a slot by number. Last write wins.
func (s *Store) StoreSlot(ctx context.Context, number uint64, timestamp int64, parent *uint64, status domain.SlotStatus) error {
	query := `
		INSERT INTO slots (slot_number, timestamp, parent, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot_number) DO UPDATE SET
			timestamp = EXCLUDED.timestamp,
			parent = EXCLUDED.parent,
			status = EXCLUDED.status
	`

	var parentArg *int64
	if parent != nil {
		p := int64(*parent)
		parentArg = &p
	}

	if _, err := s.pool.Exec(ctx, query, int64(number), timestamp, parentArg, string(status)); err != nil {
		return fmt.Errorf("store slot %d: %w", number, err)
	}
	return nil
}

// GetSlot retrieves a slot by number. Returns nil, nil if absent.
func (s *Store) GetSlot(ctx context.Context, number uint64) (*domain.SlotRecord, error) {
	query := `
		SELECT slot_number, timestamp, parent, status
		FROM slots
		WHERE slot_number = $1
	`

	rec, err := scanSlot(s.pool.QueryRow(ctx, query, int64(number)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot %d: %w", number, err)
	}
	return rec, nil
}

// GetLatestSlot retrieves the slot with the highest number. Returns nil, nil if empty.
func (s *Store) GetLatestSlot(ctx context.Context) (*domain.SlotRecord, error) {
	query := `
		SELECT slot_number, timestamp, parent, status
		FROM slots
		ORDER BY slot_number DESC
		LIMIT 1
	`

	rec, err := scanSlot(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest slot: %w", err)
	}
	return rec, nil
}

func scanSlot(row pgx.Row) (*domain.SlotRecord, error) {
	var (
		number int64
		parent *int64
		status string
		rec    domain.SlotRecord
	)
	if err := row.Scan(&number, &rec.Timestamp, &parent, &status); err != nil {
		return nil, err
	}
	rec.Number = uint64(number)
	rec.Status = domain.ParseSlotStatus(status)
	if parent != nil {
		p := uint64(*parent)
		rec.Parent = &p
	}
	return &rec, nil
}

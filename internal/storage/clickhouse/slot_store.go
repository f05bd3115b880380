package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-indexer/internal/domain"
)

// StoreSlot upserts a slot by number. Last write wins.
func (s *Store) StoreSlot(ctx context.Context, number uint64, timestamp int64, parent *uint64, status domain.SlotStatus) error {
	query := `
		INSERT INTO slots (slot_number, timestamp, parent, status, version)
		VALUES (?, ?, ?, ?, ?)
	`
	if err := s.conn.Exec(ctx, query, number, timestamp, parent, string(status), s.nextVersion()); err != nil {
		return fmt.Errorf("store slot %d: %w", number, err)
	}
	return nil
}

// GetSlot retrieves a slot by number. Returns nil, nil if absent.
func (s *Store) GetSlot(ctx context.Context, number uint64) (*domain.SlotRecord, error) {
	query := `
		SELECT slot_number, timestamp, parent, status
		FROM slots FINAL
		WHERE slot_number = ?
		LIMIT 1
	`
	rec, err := scanSlot(s.conn.QueryRow(ctx, query, number))
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
		FROM slots FINAL
		ORDER BY slot_number DESC
		LIMIT 1
	`
	rec, err := scanSlot(s.conn.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest slot: %w", err)
	}
	return rec, nil
}

func scanSlot(row driver.Row) (*domain.SlotRecord, error) {
	var (
		rec    domain.SlotRecord
		status string
	)
	if err := row.Scan(&rec.Number, &rec.Timestamp, &rec.Parent, &status); err != nil {
		return nil, err
	}
	rec.Status = domain.ParseSlotStatus(status)
	return &rec, nil
}

// Package backend opens a storage.Store by backend name and runs its migrations.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-indexer/internal/storage"
	chstore "solana-indexer/internal/storage/clickhouse"
	"solana-indexer/internal/storage/memory"
	"solana-indexer/internal/storage/migrations"
	pgstore "solana-indexer/internal/storage/postgres"
)

// Options selects and configures a backend.
type Options struct {
	// Backend is one of storage.BackendPostgres, BackendClickhouse, BackendMemory.
	// Empty picks one from the DSNs that are set.
	Backend       string
	PostgresDSN   string
	ClickhouseDSN string
	Logger        *zap.Logger
}

// Open connects to the selected backend and applies its schema.
func Open(ctx context.Context, opts Options) (storage.Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	name := storage.ResolveBackend(opts.Backend, opts.PostgresDSN, opts.ClickhouseDSN)

	switch name {
	case storage.BackendMemory:
		logger.Info("using in-memory storage; data is lost on exit")
		return memory.NewStore(), nil

	case storage.BackendPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("%w: postgres backend requires DATABASE_URL", storage.ErrInvalidInput)
		}
		pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("connected to postgres")
		return pgstore.NewStore(pool), nil

	case storage.BackendClickhouse:
		if opts.ClickhouseDSN == "" {
			return nil, fmt.Errorf("%w: clickhouse backend requires CLICKHOUSE_DSN", storage.ErrInvalidInput)
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, opts.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		logger.Info("connected to clickhouse")
		return chstore.NewStore(conn), nil

	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, name)
	}
}

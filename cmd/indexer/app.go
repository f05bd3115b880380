package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solana-indexer/internal/cache"
	"solana-indexer/internal/config"
	"solana-indexer/internal/ingestion"
	"solana-indexer/internal/notify"
	"solana-indexer/internal/observability"
	"solana-indexer/internal/solana"
	"solana-indexer/internal/storage"
	"solana-indexer/internal/storage/backend"
	"solana-indexer/internal/watcher"
)

// app holds the components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Store
	cache  *cache.MultiTierCache
	chain  *solana.Chain

	redis     *redis.Client         // nil when Redis is disabled
	publisher *notify.RedisNotifier // nil when Redis is disabled
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := backend.Open(ctx, backend.Options{
		Backend:       cfg.Storage.Backend,
		PostgresDSN:   cfg.Storage.PostgresDSN,
		ClickhouseDSN: cfg.Storage.ClickhouseDSN,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	mtc, err := cache.New(cache.Options{
		Store:      store,
		L1Capacity: cfg.Cache.L1Size,
		L2Capacity: cfg.Cache.L2Size,
		L2TTL:      cfg.Cache.L2TTL,
		Logger:     logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL, solana.WithRateLimit(cfg.Solana.RateLimit))

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		cache:  mtc,
		chain:  solana.NewChain(rpc, logger),
	}

	if cfg.Redis.URL != "" {
		rdb, err := notify.NewRedisClient(ctx, cfg.Redis.URL, logger)
		if err != nil {
			logger.Warn("redis unavailable, notifications disabled", zap.Error(err))
		} else {
			a.redis = rdb
			a.publisher = notify.NewRedisNotifier(rdb, logger)
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing storage", zap.Error(err))
	}
}

// newTracker builds a tracker. Streaming is used only when allowed and an
// endpoint is configured.
func (a *app) newTracker(allowStreaming, withTransactions bool) (*ingestion.Tracker, error) {
	polling := ingestion.NewPollingSource(ingestion.PollingOptions{
		Chain:            a.chain,
		Interval:         a.cfg.Ingest.PollInterval,
		SkipTransactions: !withTransactions,
		Logger:           a.logger,
	})

	var streaming ingestion.Source
	if allowStreaming && a.cfg.StreamingEnabled() {
		streaming = ingestion.NewStreamingSource(ingestion.StreamingOptions{
			Dial:   ingestion.WebSocketDialer(a.cfg.Solana.WSURL, nil, a.logger),
			Logger: a.logger,
		})
	}

	return ingestion.NewTracker(ingestion.TrackerOptions{
		Streaming: streaming,
		Polling:   polling,
		Sink:      a.cache,
		Logger:    a.logger,
	})
}

func (a *app) newWatcher(addresses []string) (*watcher.AccountWatcher, error) {
	var notifier notify.Notifier = notify.NewLogNotifier(a.logger)
	if a.publisher != nil {
		notifier = notify.Multi{notifier, a.publisher}
	}
	return watcher.New(watcher.Options{
		Addresses: addresses,
		Interval:  a.cfg.Ingest.WatchInterval,
		Fetcher:   a.chain,
		Cache:     a.cache,
		Notifier:  notifier,
		Logger:    a.logger,
	})
}

// serveMetrics serves the metrics router until ctx is done.
func (a *app) serveMetrics(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           observability.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting metrics server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

// reportStats logs tracker counters at a fixed interval until ctx is done.
func (a *app) reportStats(ctx context.Context, tracker *ingestion.Tracker, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s := tracker.Stats()
			a.logger.Info("tracker stats",
				zap.String("state", s.State.String()),
				zap.String("source", s.Source),
				zap.Uint64("highest_slot", s.HighestSlot),
				zap.Uint64("slots", s.SlotsProcessed),
				zap.Uint64("transactions", s.TransactionsProcessed),
				zap.Uint64("slots_dropped", s.SlotsDropped),
				zap.Uint64("transactions_dropped", s.TransactionsDropped),
				zap.Uint64("storage_errors", s.StorageErrors),
				zap.Uint64("failovers", s.Failovers))
		}
	}
}

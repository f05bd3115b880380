// Package watcher reconciles a fixed set of accounts against their last
// stored state.
package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/notify"
	"solana-indexer/internal/observability"
	"solana-indexer/internal/solana"
)

// Fetcher returns the current state of an account.
// Implemented by *solana.Chain.
type Fetcher interface {
	Account(ctx context.Context, address string) (*domain.AccountState, error)
}

var _ Fetcher = (*solana.Chain)(nil)

// AccountCache holds the previously observed account states.
// Implemented by *cache.MultiTierCache.
type AccountCache interface {
	GetAccount(ctx context.Context, address string) (*domain.AccountState, error)
	StoreAccount(ctx context.Context, state *domain.AccountState) error
}

// Options configures AccountWatcher.
type Options struct {
	// Addresses is the fixed watch set.
	Addresses []string
	// Interval between ticks. Default: 5s.
	Interval time.Duration

	Fetcher Fetcher
	Cache   AccountCache
	// Notifier receives changes. Default: log at Info.
	Notifier notify.Notifier
	Logger   *zap.Logger
}

// TickResult summarizes one reconciliation pass.
type TickResult struct {
	Checked int
	Changed int
	Failed  int
}

// AccountWatcher re-fetches every address on a fixed tick, compares it with
// the stored state, notifies on lamports or data changes and stores the
// fresh state.
type AccountWatcher struct {
	addresses []string
	interval  time.Duration
	fetcher   Fetcher
	cache     AccountCache
	notifier  notify.Notifier
	logger    *zap.Logger
	nowFn     func() time.Time

	ticks   atomic.Uint64
	changes atomic.Uint64
}

// New creates an AccountWatcher.
func New(opts Options) (*AccountWatcher, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("watcher: fetcher is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("watcher: cache is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("watcher")

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	return &AccountWatcher{
		addresses: append([]string(nil), opts.Addresses...),
		interval:  interval,
		fetcher:   opts.Fetcher,
		cache:     opts.Cache,
		notifier:  notifier,
		logger:    logger,
		nowFn:     time.Now,
	}, nil
}

// Addresses returns the watch set.
func (w *AccountWatcher) Addresses() []string {
	return append([]string(nil), w.addresses...)
}

// Ticks returns the number of completed ticks.
func (w *AccountWatcher) Ticks() uint64 {
	return w.ticks.Load()
}

// Changes returns the number of changes detected so far.
func (w *AccountWatcher) Changes() uint64 {
	return w.changes.Load()
}

// Run ticks immediately and then every interval until ctx is done.
// It returns ctx.Err().
func (w *AccountWatcher) Run(ctx context.Context) error {
	w.logger.Info("account watcher started",
		zap.Int("addresses", len(w.addresses)),
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		res := w.Tick(ctx)
		w.logger.Debug("watch tick complete",
			zap.Int("checked", res.Checked),
			zap.Int("changed", res.Changed),
			zap.Int("failed", res.Failed))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick checks every address once, sequentially. A failure for one address is
// logged and does not affect the others.
func (w *AccountWatcher) Tick(ctx context.Context) TickResult {
	var res TickResult
	for _, addr := range w.addresses {
		if ctx.Err() != nil {
			break
		}
		changed, err := w.check(ctx, addr)
		if err != nil {
			res.Failed++
			continue
		}
		res.Checked++
		if changed {
			res.Changed++
		}
	}
	w.ticks.Add(1)
	return res
}

func (w *AccountWatcher) check(ctx context.Context, addr string) (bool, error) {
	current, err := w.fetcher.Account(ctx, addr)
	if err != nil {
		observability.RecordAccountFetchError()
		w.logger.Warn("failed to fetch account", zap.String("address", addr), zap.Error(err))
		return false, err
	}

	prev, err := w.cache.GetAccount(ctx, addr)
	if err != nil {
		// Compare against nothing; the fresh state is still stored.
		w.logger.Warn("failed to load previous account state", zap.String("address", addr), zap.Error(err))
		prev = nil
	}

	changed := current.ChangedFrom(prev)
	if changed {
		w.changes.Add(1)
		observability.RecordAccountChange()
		change := notify.AccountChange{Previous: prev, Current: current, DetectedAt: w.nowFn()}
		if err := w.notifier.AccountChanged(ctx, change); err != nil {
			w.logger.Warn("failed to deliver account change", zap.String("address", addr), zap.Error(err))
		}
	}

	if err := w.cache.StoreAccount(ctx, current); err != nil {
		observability.RecordStorageError("store_account")
		w.logger.Warn("failed to store account", zap.String("address", addr), zap.Error(err))
	}
	return changed, nil
}

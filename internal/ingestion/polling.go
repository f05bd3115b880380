package ingestion

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/solana"
)

// ChainReader is the subset of chain access used by PollingSource.
// Implemented by *solana.Chain.
type ChainReader interface {
	CurrentSlot(ctx context.Context) (uint64, error)
	Block(ctx context.Context, slot uint64) (*solana.BlockHeader, error)
	BlockWithTransactions(ctx context.Context, slot uint64) (*solana.BlockHeader, []domain.TransactionDetail, error)
}

var _ ChainReader = (*solana.Chain)(nil)

// PollingOptions configures PollingSource.
type PollingOptions struct {
	Chain ChainReader

	// Interval between head queries. Default: 400ms.
	Interval time.Duration

	// MaxCatchUp bounds the number of slots emitted per poll. When the head
	// moves further, the oldest missed slots are skipped. Default: 1000.
	MaxCatchUp uint64

	// SkipTransactions disables per-slot block transaction fetching.
	SkipTransactions bool

	Logger *zap.Logger
}

// PollingSource queries the slot head at a fixed interval and emits every
// slot between the last seen head and the new one, in increasing order.
// Each emitted slot carries its block transactions.
type PollingSource struct {
	chain            ChainReader
	interval         time.Duration
	maxCatchUp       uint64
	skipTransactions bool
	logger           *zap.Logger
	nowFn            func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Source = (*PollingSource)(nil)

// NewPollingSource creates a PollingSource.
func NewPollingSource(opts PollingOptions) *PollingSource {
	interval := opts.Interval
	if interval <= 0 {
		interval = 400 * time.Millisecond
	}
	maxCatchUp := opts.MaxCatchUp
	if maxCatchUp == 0 {
		maxCatchUp = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PollingSource{
		chain:            opts.Chain,
		interval:         interval,
		maxCatchUp:       maxCatchUp,
		skipTransactions: opts.SkipTransactions,
		logger:           logger.Named("polling"),
		nowFn:            time.Now,
	}
}

// Name returns "polling".
func (p *PollingSource) Name() string {
	return SourcePolling
}

// Subscribe starts the poll loop. The first head observed is emitted first;
// afterwards every newly observed slot follows in order. Head query failures,
// including the first, are logged and retried on the next tick, so Subscribe
// never fails.
func (p *PollingSource) Subscribe(ctx context.Context) (*Subscription, error) {
	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	slots := make(chan SlotEvent)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(slots)
		p.run(runCtx, slots)
	}()

	return &Subscription{Slots: slots}, nil
}

// Close stops the poll loop and waits for it to exit.
func (p *PollingSource) Close() error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *PollingSource) run(ctx context.Context, out chan<- SlotEvent) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last uint64
	seeded := false

	for {
		head, err := p.chain.CurrentSlot(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("failed to get current slot", zap.Error(err))

		case !seeded:
			if !p.emit(ctx, head, nil, out) {
				return
			}
			last, seeded = head, true

		case head > last:
			from := last + 1
			if head-last > p.maxCatchUp {
				from = head - p.maxCatchUp + 1
				p.logger.Warn("polling fell behind, skipping slots",
					zap.Uint64("last", last),
					zap.Uint64("head", head),
					zap.Uint64("skipped", from-last-1))
			}

			for n := from; n <= head; n++ {
				// Parent is the previously emitted slot, even across a skip.
				parent := last
				if !p.emit(ctx, n, &parent, out) {
					return
				}
				last = n
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emit builds the slot event for n and sends it. Returns false when ctx is done.
func (p *PollingSource) emit(ctx context.Context, n uint64, parent *uint64, out chan<- SlotEvent) bool {
	rec := &domain.SlotRecord{
		Number:    n,
		Parent:    parent,
		Status:    domain.SlotStatusConfirmed,
		Timestamp: p.nowFn().Unix(),
	}

	var (
		header *solana.BlockHeader
		txs    []domain.TransactionDetail
		err    error
	)
	if p.skipTransactions {
		header, err = p.chain.Block(ctx, n)
		if err != nil {
			p.logger.Debug("block header unavailable", zap.Uint64("slot", n), zap.Error(err))
		}
	} else {
		header, txs, err = p.chain.BlockWithTransactions(ctx, n)
		if err != nil {
			p.logger.Warn("failed to fetch block", zap.Uint64("slot", n), zap.Error(err))
		}
	}
	if err == nil && header != nil {
		hash := header.Hash
		rec.BlockHash = &hash
		rec.BlockHeight = header.Height
	}

	select {
	case out <- SlotEvent{Record: rec, Transactions: txs}:
		return true
	case <-ctx.Done():
		return false
	}
}

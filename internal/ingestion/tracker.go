package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/observability"
)

// State is the tracker's source-selection state.
type State int32

const (
	// StateUnconfigured means no streaming source is configured.
	StateUnconfigured State = iota
	// StateStreamingAttempt means the streaming source is connecting.
	StateStreamingAttempt
	// StateStreamingActive means events come from the streaming source.
	StateStreamingActive
	// StatePollingOnly means events come from the polling source. Terminal.
	StatePollingOnly
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateStreamingAttempt:
		return "streaming-attempt"
	case StateStreamingActive:
		return "streaming-active"
	case StatePollingOnly:
		return "polling-only"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Failover causes used in logs and metrics.
const (
	causeConnect = "connect"
	causeStream  = "stream"
)

// Sink receives every slot and transaction record the tracker handles.
// Implemented by *cache.MultiTierCache.
type Sink interface {
	StoreSlot(ctx context.Context, rec *domain.SlotRecord) error
	StoreTransaction(ctx context.Context, tx *domain.TransactionRecord) error
}

// TrackerOptions configures Tracker.
type TrackerOptions struct {
	// Streaming is optional. When nil the tracker starts in polling.
	Streaming Source
	// Polling is required.
	Polling Source
	// Sink receives write-through records. Required.
	Sink Sink

	// SlotBuffer is the slot consumer capacity. Default: 1000.
	SlotBuffer int
	// TransactionBuffer is the transaction consumer capacity. Default: 10000.
	TransactionBuffer int

	Logger *zap.Logger
}

// Stats is a snapshot of tracker counters.
type Stats struct {
	State                 State
	Source                string
	SlotsProcessed        uint64
	TransactionsProcessed uint64
	SlotsDropped          uint64
	TransactionsDropped   uint64
	StorageErrors         uint64
	Failovers             uint64
	HighestSlot           uint64
}

// Tracker selects between a streaming and a polling source, forwards every
// event to bounded consumer channels and writes it through the sink.
// Falling back to polling is permanent for the tracker's lifetime.
//
// Consumer sends never block: when a consumer channel is full the event is
// dropped for that consumer and still written through.
type Tracker struct {
	streaming Source
	polling   Source
	sink      Sink
	logger    *zap.Logger

	slots chan *domain.SlotRecord
	txs   chan *domain.TransactionDetail

	state  atomic.Int32
	source atomic.Value // string

	slotsProcessed atomic.Uint64
	txsProcessed   atomic.Uint64
	slotsDropped   atomic.Uint64
	txsDropped     atomic.Uint64
	storageErrors  atomic.Uint64
	failovers      atomic.Uint64
	highestSlot    atomic.Uint64

	runOnce sync.Once
}

// NewTracker creates a Tracker.
func NewTracker(opts TrackerOptions) (*Tracker, error) {
	if opts.Polling == nil {
		return nil, errors.New("ingestion: polling source is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("ingestion: sink is required")
	}

	slotBuffer := opts.SlotBuffer
	if slotBuffer <= 0 {
		slotBuffer = 1000
	}
	txBuffer := opts.TransactionBuffer
	if txBuffer <= 0 {
		txBuffer = 10000
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Tracker{
		streaming: opts.Streaming,
		polling:   opts.Polling,
		sink:      opts.Sink,
		logger:    logger.Named("tracker"),
		slots:     make(chan *domain.SlotRecord, slotBuffer),
		txs:       make(chan *domain.TransactionDetail, txBuffer),
	}
	if opts.Streaming == nil {
		t.setState(StateUnconfigured)
	} else {
		t.setState(StateStreamingAttempt)
	}
	t.source.Store("")
	return t, nil
}

// Slots returns the slot consumer channel. It is closed when Run returns.
func (t *Tracker) Slots() <-chan *domain.SlotRecord {
	return t.slots
}

// Transactions returns the transaction consumer channel. It is closed when
// Run returns.
func (t *Tracker) Transactions() <-chan *domain.TransactionDetail {
	return t.txs
}

// State returns the current state.
func (t *Tracker) State() State {
	return State(t.state.Load())
}

// Stats returns a snapshot of the tracker counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		State:                 t.State(),
		Source:                t.source.Load().(string),
		SlotsProcessed:        t.slotsProcessed.Load(),
		TransactionsProcessed: t.txsProcessed.Load(),
		SlotsDropped:          t.slotsDropped.Load(),
		TransactionsDropped:   t.txsDropped.Load(),
		StorageErrors:         t.storageErrors.Load(),
		Failovers:             t.failovers.Load(),
		HighestSlot:           t.highestSlot.Load(),
	}
}

// Run consumes the streaming source until it fails, then the polling source
// until ctx is done. It returns ctx.Err() on cancellation, or an error when
// the polling source cannot be subscribed or terminates. Run may only be
// called once.
func (t *Tracker) Run(ctx context.Context) error {
	started := false
	t.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("ingestion: tracker already run")
	}
	defer close(t.slots)
	defer close(t.txs)

	if t.streaming != nil {
		if err := t.runStreaming(ctx); err != nil {
			return err
		}
	}

	t.setState(StatePollingOnly)
	t.source.Store(t.polling.Name())
	observability.SetActiveSource(false)
	defer t.polling.Close()

	sub, err := t.polling.Subscribe(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("subscribe %s: %w", t.polling.Name(), err)
	}
	t.logger.Info("polling source active")

	err = t.consume(ctx, sub, t.polling.Name())
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s source: %w", t.polling.Name(), err)
}

// runStreaming drives the streaming source. It returns nil when the tracker
// must fall back to polling and ctx.Err() on cancellation.
func (t *Tracker) runStreaming(ctx context.Context) error {
	t.setState(StateStreamingAttempt)

	sub, err := t.streaming.Subscribe(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.failover(causeConnect, err)
		return nil
	}

	t.setState(StateStreamingActive)
	t.source.Store(t.streaming.Name())
	observability.SetActiveSource(true)
	t.logger.Info("streaming source active")

	err = t.consume(ctx, sub, t.streaming.Name())
	if ctx.Err() != nil {
		_ = t.streaming.Close()
		return ctx.Err()
	}
	t.failover(causeStream, err)
	return nil
}

func (t *Tracker) failover(cause string, err error) {
	t.logger.Warn("streaming source failed, falling back to polling",
		zap.String("cause", cause),
		zap.Error(err))
	t.failovers.Add(1)
	observability.RecordFailover(cause)
	if closeErr := t.streaming.Close(); closeErr != nil {
		t.logger.Debug("error closing streaming source", zap.Error(closeErr))
	}
}

// consume reads both sequences of sub until either closes, a terminal error
// arrives or ctx is done. The select picks uniformly among ready sequences,
// so neither starves the other.
func (t *Tracker) consume(ctx context.Context, sub *Subscription, source string) error {
	slots, txs, errs := sub.Slots, sub.Transactions, sub.Errors

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-slots:
			if !ok {
				return t.terminated(errs, "slot sequence closed")
			}
			t.handleSlotEvent(ctx, ev, source)

		case d, ok := <-txs:
			if !ok {
				return t.terminated(errs, "transaction sequence closed")
			}
			t.handleTransaction(ctx, d, source)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return fmt.Errorf("%w: %v", ErrStreamTerminated, err)
		}
	}
}

// terminated reports a closed sequence, preferring a pending terminal error.
func (t *Tracker) terminated(errs <-chan error, reason string) error {
	if errs != nil {
		select {
		case err, ok := <-errs:
			if ok && err != nil {
				return fmt.Errorf("%w: %v", ErrStreamTerminated, err)
			}
		default:
		}
	}
	return fmt.Errorf("%w: %s", ErrStreamTerminated, reason)
}

func (t *Tracker) handleSlotEvent(ctx context.Context, ev SlotEvent, source string) {
	for i := range ev.Transactions {
		t.handleTransaction(ctx, ev.Transactions[i], source)
	}
	if ev.Record != nil {
		t.handleSlot(ctx, ev.Record, source)
	}
}

func (t *Tracker) handleSlot(ctx context.Context, rec *domain.SlotRecord, source string) {
	t.slotsProcessed.Add(1)
	for {
		cur := t.highestSlot.Load()
		if rec.Number <= cur || t.highestSlot.CompareAndSwap(cur, rec.Number) {
			break
		}
	}
	observability.RecordSlot(source, rec.Number)

	select {
	case t.slots <- rec.Clone():
	default:
		t.slotsDropped.Add(1)
		observability.RecordConsumerDrop("slot")
	}

	if err := t.sink.StoreSlot(ctx, rec); err != nil {
		t.storageErrors.Add(1)
		observability.RecordStorageError("store_slot")
		t.logger.Warn("failed to store slot", zap.Uint64("slot", rec.Number), zap.Error(err))
	}
}

func (t *Tracker) handleTransaction(ctx context.Context, d domain.TransactionDetail, source string) {
	t.txsProcessed.Add(1)
	observability.RecordTransaction(source)

	forwarded := d
	forwarded.Accounts = append([]string(nil), d.Accounts...)
	select {
	case t.txs <- &forwarded:
	default:
		t.txsDropped.Add(1)
		observability.RecordConsumerDrop("transaction")
	}

	if err := t.sink.StoreTransaction(ctx, d.Record()); err != nil {
		t.storageErrors.Add(1)
		observability.RecordStorageError("store_transaction")
		t.logger.Warn("failed to store transaction", zap.String("signature", d.Signature), zap.Error(err))
	}
}

func (t *Tracker) setState(s State) {
	t.state.Store(int32(s))
}

package stub

import (
	"context"
	"sync"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/ingestion"
)

// Source implements ingestion.Source with test-controlled sequences.
type Source struct {
	name string

	// Slots and Transactions are handed out by Subscribe.
	Slots        chan ingestion.SlotEvent
	Transactions chan domain.TransactionDetail
	Errors       chan error

	// SubscribeErr fails Subscribe.
	SubscribeErr error

	mu         sync.Mutex
	subscribed int
	closed     int
}

var _ ingestion.Source = (*Source)(nil)

// NewSource creates a stub source with buffered sequences.
func NewSource(name string) *Source {
	return &Source{
		name:         name,
		Slots:        make(chan ingestion.SlotEvent, 100),
		Transactions: make(chan domain.TransactionDetail, 100),
		Errors:       make(chan error, 1),
	}
}

// Name returns the configured name.
func (s *Source) Name() string {
	return s.name
}

// Subscribe returns the stub sequences or SubscribeErr.
func (s *Source) Subscribe(_ context.Context) (*ingestion.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed++
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}
	return &ingestion.Subscription{
		Slots:        s.Slots,
		Transactions: s.Transactions,
		Errors:       s.Errors,
	}, nil
}

// Close counts calls.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// SendSlot queues a slot event with the given transactions.
func (s *Source) SendSlot(rec *domain.SlotRecord, txs ...domain.TransactionDetail) {
	s.Slots <- ingestion.SlotEvent{Record: rec, Transactions: txs}
}

// Fail queues a terminal error.
func (s *Source) Fail(err error) {
	s.Errors <- err
}

// Subscribed returns how many times Subscribe was called.
func (s *Source) Subscribed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

// Closed returns how many times Close was called.
func (s *Source) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-indexer/internal/domain"
	"solana-indexer/internal/solana"
)

// DialFunc opens a streaming client.
type DialFunc func(ctx context.Context) (solana.WSClient, error)

// StreamingOptions configures StreamingSource.
type StreamingOptions struct {
	Dial DialFunc

	// BufferSize of the outgoing sequences. Default: 1000.
	BufferSize int

	Logger *zap.Logger
}

// StreamingSource turns slot and block subscriptions into slot and
// transaction sequences. It never reconnects: when the client terminates
// both sequences close and the terminal error, if any, is reported once.
type StreamingSource struct {
	dial       DialFunc
	bufferSize int
	logger     *zap.Logger
	nowFn      func() time.Time

	mu     sync.Mutex
	client solana.WSClient
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Source = (*StreamingSource)(nil)

// NewStreamingSource creates a StreamingSource.
func NewStreamingSource(opts StreamingOptions) *StreamingSource {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StreamingSource{
		dial:       opts.Dial,
		bufferSize: bufferSize,
		logger:     logger.Named("streaming"),
		nowFn:      time.Now,
	}
}

// WebSocketDialer returns a DialFunc for a JSON-RPC websocket endpoint.
func WebSocketDialer(endpoint string, config *solana.WSClientConfig, logger *zap.Logger) DialFunc {
	return func(ctx context.Context) (solana.WSClient, error) {
		client, err := solana.NewWSClient(ctx, endpoint, config, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Name returns "streaming".
func (s *StreamingSource) Name() string {
	return SourceStreaming
}

// Subscribe dials the endpoint and opens slot and block subscriptions.
func (s *StreamingSource) Subscribe(ctx context.Context) (*Subscription, error) {
	if s.dial == nil {
		return nil, fmt.Errorf("%w: no dialer configured", ErrSourceUnavailable)
	}

	client, err := s.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	slotsIn, err := client.SubscribeSlots(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: slot subscribe: %v", ErrSourceUnavailable, err)
	}
	blocksIn, err := client.SubscribeBlocks(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: block subscribe: %v", ErrSourceUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.client = client
	s.cancel = cancel
	s.mu.Unlock()

	slots := make(chan SlotEvent, s.bufferSize)
	txs := make(chan domain.TransactionDetail, s.bufferSize)
	errs := make(chan error, 1)

	// Either input closing stops both pumps.
	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		defer cancel()
		s.pumpSlots(runCtx, slotsIn, slots)
	}()
	go func() {
		defer pumps.Done()
		defer cancel()
		s.pumpBlocks(runCtx, blocksIn, slots, txs)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		pumps.Wait()
		if err := client.Err(); err != nil && !errors.Is(err, solana.ErrClientClosed) {
			errs <- err
		}
		close(errs)
		close(txs)
		close(slots)
	}()

	return &Subscription{Slots: slots, Transactions: txs, Errors: errs}, nil
}

// Close closes the client and waits for the pumps to exit.
func (s *StreamingSource) Close() error {
	s.mu.Lock()
	client, cancel := s.client, s.cancel
	s.client, s.cancel = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if client != nil {
		err = client.Close()
	}
	s.wg.Wait()
	return err
}

func (s *StreamingSource) pumpSlots(ctx context.Context, in <-chan solana.SlotNotification, out chan<- SlotEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-in:
			if !ok {
				return
			}
			parent := n.Parent
			rec := &domain.SlotRecord{
				Number:    n.Slot,
				Parent:    &parent,
				Status:    domain.SlotStatusProcessed,
				Timestamp: s.nowFn().Unix(),
			}
			select {
			case out <- SlotEvent{Record: rec}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// pumpBlocks decodes confirmed blocks into transaction details and a
// Confirmed slot record carrying the block hash and height.
func (s *StreamingSource) pumpBlocks(ctx context.Context, in <-chan solana.BlockNotification, slots chan<- SlotEvent, out chan<- domain.TransactionDetail) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-in:
			if !ok {
				return
			}
			if n.Err != nil || n.Block == nil {
				s.logger.Debug("block notification without block", zap.Uint64("slot", n.Slot), zap.Any("err", n.Err))
				continue
			}

			now := s.nowFn().Unix()
			for i := range n.Block.Transactions {
				detail := solana.ExtractDetail(&n.Block.Transactions[i], now)
				select {
				case out <- detail:
				case <-ctx.Done():
					return
				}
			}

			select {
			case slots <- SlotEvent{Record: confirmedRecord(n, now)}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func confirmedRecord(n solana.BlockNotification, now int64) *domain.SlotRecord {
	parent := n.Block.ParentSlot
	hash := n.Block.Blockhash
	ts := now
	if n.Block.BlockTime != nil {
		ts = *n.Block.BlockTime
	}
	return &domain.SlotRecord{
		Number:      n.Slot,
		Parent:      &parent,
		Status:      domain.SlotStatusConfirmed,
		Timestamp:   ts,
		BlockHash:   &hash,
		BlockHeight: n.Block.BlockHeight,
	}
}

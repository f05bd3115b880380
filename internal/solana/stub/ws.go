package stub

import (
	"context"
	"sync"

	"solana-indexer/internal/solana"
)

// WSClient implements solana.WSClient with test-controlled channels.
type WSClient struct {
	Slots  chan solana.SlotNotification
	Blocks chan solana.BlockNotification

	// SubscribeErr fails both subscribe calls.
	SubscribeErr error

	mu     sync.Mutex
	done   chan struct{}
	err    error
	closed bool
}

// NewWSClient creates a stub with buffered channels.
func NewWSClient() *WSClient {
	return &WSClient{
		Slots:  make(chan solana.SlotNotification, 100),
		Blocks: make(chan solana.BlockNotification, 100),
		done:   make(chan struct{}),
	}
}

var _ solana.WSClient = (*WSClient)(nil)

// SubscribeSlots returns the Slots channel.
func (c *WSClient) SubscribeSlots(_ context.Context) (<-chan solana.SlotNotification, error) {
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	return c.Slots, nil
}

// SubscribeBlocks returns the Blocks channel.
func (c *WSClient) SubscribeBlocks(_ context.Context) (<-chan solana.BlockNotification, error) {
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	return c.Blocks, nil
}

// Done is closed by Drop or Close.
func (c *WSClient) Done() <-chan struct{} {
	return c.done
}

// Err returns the error passed to Drop.
func (c *WSClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Drop simulates a lost connection: both channels close and Err reports err.
func (c *WSClient) Drop(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.Slots)
	close(c.Blocks)
	close(c.done)
}

// Close closes the channels.
func (c *WSClient) Close() error {
	c.Drop(nil)
	return nil
}

// Closed reports whether Close or Drop was called.
func (c *WSClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

package solana

import "context"

// WSClient defines the Solana WebSocket subscriptions the streaming source uses.
// A client serves one connection; when it drops, every subscription channel
// is closed and Err reports the cause. There is no reconnect.
type WSClient interface {
	// SubscribeSlots subscribes to slot updates.
	SubscribeSlots(ctx context.Context) (<-chan SlotNotification, error)

	// SubscribeBlocks subscribes to confirmed blocks with full transactions.
	SubscribeBlocks(ctx context.Context) (<-chan BlockNotification, error)

	// Done is closed once the connection has terminated.
	Done() <-chan struct{}

	// Err returns the reason the connection terminated, nil while it is alive
	// or after a clean Close.
	Err() error

	// Close closes the WebSocket connection.
	Close() error
}

// SlotNotification is a slotSubscribe message.
type SlotNotification struct {
	Slot   uint64
	Parent uint64
	Root   uint64
}

// BlockNotification is a blockSubscribe message. Block is nil when the node
// reports Err for the slot.
type BlockNotification struct {
	Slot  uint64
	Block *Block
	Err   interface{}
}

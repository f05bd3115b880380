package solana

import "context"

// RPCClient defines the Solana RPC HTTP methods the indexer uses.
type RPCClient interface {
	// GetSlot returns the current confirmed slot.
	GetSlot(ctx context.Context) (uint64, error)

	// GetBlock retrieves a confirmed block with full transactions.
	// Returns ErrBlockUnavailable for skipped or missing slots.
	GetBlock(ctx context.Context, slot uint64) (*Block, error)

	// GetBlockHeader retrieves a block without transactions.
	GetBlockHeader(ctx context.Context, slot uint64) (*Block, error)

	// GetAccountInfo retrieves an account. Returns ErrAccountNotFound when the account does not exist.
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)

	// GetSlotLeaders returns up to limit leaders starting at start.
	GetSlotLeaders(ctx context.Context, start, limit uint64) ([]string, error)
}

package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-indexer/internal/domain"
)

// BlockHeader is the identifying part of a block.
type BlockHeader struct {
	Hash   string
	Height *uint64
}

// Chain exposes the chain-access operations used by sources and the watcher
// on top of an RPCClient.
type Chain struct {
	rpc    RPCClient
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewChain creates a Chain. A nil logger disables logging.
func NewChain(rpc RPCClient, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		rpc:    rpc,
		logger: logger,
		nowFn:  time.Now,
	}
}

// CurrentSlot returns the current slot head.
func (c *Chain) CurrentSlot(ctx context.Context) (uint64, error) {
	slot, err := c.rpc.GetSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

// Block returns the hash and height of the block at slot.
func (c *Chain) Block(ctx context.Context, slot uint64) (*BlockHeader, error) {
	block, err := c.rpc.GetBlockHeader(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", slot, err)
	}
	return &BlockHeader{Hash: block.Blockhash, Height: block.BlockHeight}, nil
}

// BlockTransactions returns the transactions of the block at slot.
// Skipped or unavailable blocks yield an empty list and no error.
func (c *Chain) BlockTransactions(ctx context.Context, slot uint64) ([]domain.TransactionDetail, error) {
	_, details, err := c.BlockWithTransactions(ctx, slot)
	return details, err
}

// BlockWithTransactions fetches the full block at slot once and returns its
// header and transactions. Skipped or unavailable blocks yield a nil header,
// an empty list and no error.
func (c *Chain) BlockWithTransactions(ctx context.Context, slot uint64) (*BlockHeader, []domain.TransactionDetail, error) {
	block, err := c.rpc.GetBlock(ctx, slot)
	if err != nil {
		if errors.Is(err, ErrBlockUnavailable) {
			c.logger.Debug("block unavailable", zap.Uint64("slot", slot), zap.Error(err))
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("get block %d: %w", slot, err)
	}

	now := c.nowFn().Unix()
	details := make([]domain.TransactionDetail, 0, len(block.Transactions))
	for i := range block.Transactions {
		details = append(details, ExtractDetail(&block.Transactions[i], now))
	}
	return &BlockHeader{Hash: block.Blockhash, Height: block.BlockHeight}, details, nil
}

// Account fetches the current state of address.
func (c *Chain) Account(ctx context.Context, address string) (*domain.AccountState, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	info, err := c.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}

	return &domain.AccountState{
		Address:    address,
		Slot:       info.Slot,
		Lamports:   info.Lamports,
		Owner:      info.Owner,
		Executable: info.Executable,
		Data:       info.Data,
		RentEpoch:  info.RentEpoch,
	}, nil
}

// CurrentLeader returns the leader of the current slot.
func (c *Chain) CurrentLeader(ctx context.Context) (string, error) {
	slot, err := c.CurrentSlot(ctx)
	if err != nil {
		return "", err
	}
	return c.SlotLeader(ctx, slot)
}

// SlotLeader returns the leader scheduled for slot.
func (c *Chain) SlotLeader(ctx context.Context, slot uint64) (string, error) {
	leaders, err := c.rpc.GetSlotLeaders(ctx, slot, 1)
	if err != nil {
		return "", fmt.Errorf("get slot leaders %d: %w", slot, err)
	}
	if len(leaders) == 0 {
		return "", fmt.Errorf("no leader for slot %d", slot)
	}
	return leaders[0], nil
}

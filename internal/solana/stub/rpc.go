// Package stub provides in-memory fakes of the Solana clients for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-indexer/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. Safe for concurrent use.
type RPCClient struct {
	mu sync.Mutex

	// Slots is the sequence returned by successive GetSlot calls; the last
	// value repeats once exhausted.
	Slots    []uint64
	slotIdx  int
	SlotErr  error
	// SlotFailures fails that many GetSlot calls before Slots is consulted.
	SlotFailures int
	Blocks   map[uint64]*solana.Block
	BlockErr map[uint64]error
	Accounts map[string]*solana.AccountInfo
	// AccountErr fails GetAccountInfo for specific addresses.
	AccountErr map[string]error
	Leaders    map[uint64]string

	Calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Blocks:     make(map[uint64]*solana.Block),
		BlockErr:   make(map[uint64]error),
		Accounts:   make(map[string]*solana.AccountInfo),
		AccountErr: make(map[string]error),
		Leaders:    make(map[uint64]string),
		Calls:      make(map[string]int),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// GetSlot returns the next value of Slots.
func (c *RPCClient) GetSlot(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls["getSlot"]++
	if c.SlotErr != nil {
		return 0, c.SlotErr
	}
	if c.SlotFailures > 0 {
		c.SlotFailures--
		return 0, fmt.Errorf("stub: transient: connection reset")
	}
	if len(c.Slots) == 0 {
		return 0, fmt.Errorf("stub: no slots configured")
	}
	slot := c.Slots[c.slotIdx]
	if c.slotIdx < len(c.Slots)-1 {
		c.slotIdx++
	}
	return slot, nil
}

// GetBlock returns the configured block, or ErrBlockUnavailable.
func (c *RPCClient) GetBlock(_ context.Context, slot uint64) (*solana.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls["getBlock"]++
	return c.block(slot)
}

// GetBlockHeader returns the configured block without transactions.
func (c *RPCClient) GetBlockHeader(_ context.Context, slot uint64) (*solana.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls["getBlockHeader"]++
	b, err := c.block(slot)
	if err != nil {
		return nil, err
	}
	header := *b
	header.Transactions = nil
	return &header, nil
}

func (c *RPCClient) block(slot uint64) (*solana.Block, error) {
	if err := c.BlockErr[slot]; err != nil {
		return nil, err
	}
	b, ok := c.Blocks[slot]
	if !ok {
		return nil, fmt.Errorf("%w: slot %d", solana.ErrBlockUnavailable, slot)
	}
	return b, nil
}

// GetAccountInfo returns the configured account.
func (c *RPCClient) GetAccountInfo(_ context.Context, address string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls["getAccountInfo"]++
	if err := c.AccountErr[address]; err != nil {
		return nil, err
	}
	info, ok := c.Accounts[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", solana.ErrAccountNotFound, address)
	}
	cp := *info
	cp.Data = append([]byte(nil), info.Data...)
	return &cp, nil
}

// GetSlotLeaders returns the configured leaders starting at start.
func (c *RPCClient) GetSlotLeaders(_ context.Context, start, limit uint64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls["getSlotLeaders"]++
	var leaders []string
	for s := start; s < start+limit; s++ {
		if l, ok := c.Leaders[s]; ok {
			leaders = append(leaders, l)
		}
	}
	return leaders, nil
}

// AddBlock adds a block to the stub store.
func (c *RPCClient) AddBlock(block *solana.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Blocks[block.Slot] = block
}

// SetAccount sets the account returned for address.
func (c *RPCClient) SetAccount(address string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[address] = info
}

// SetAccountErr makes GetAccountInfo fail for address. A nil error clears it.
func (c *RPCClient) SetAccountErr(address string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.AccountErr, address)
		return
	}
	c.AccountErr[address] = err
}

// CallCount returns how many times method was called.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

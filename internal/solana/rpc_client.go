package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"solana-indexer/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Commitment used for all reads.
const defaultCommitment = "confirmed"

// JSON-RPC error codes the node uses for blocks it cannot serve.
const (
	rpcErrBlockNotAvailable      = -32004
	rpcErrSlotSkipped            = -32007
	rpcErrLongTermStorageSkipped = -32009
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ RPCClient = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// blockUnavailable reports whether the node refused a block because it was
// skipped or is no longer available.
func (e *RPCError) blockUnavailable() bool {
	switch e.Code {
	case rpcErrBlockNotAvailable, rpcErrSlotSkipped, rpcErrLongTermStorageSkipped:
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "skipped") || strings.Contains(msg, "not available")
}

// call performs a JSON-RPC call with rate limiting, retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		// RPC errors are not retried
		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (uint64, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": defaultCommitment},
	}
	var result uint64
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetBlock retrieves a block with full transaction details.
func (c *HTTPClient) GetBlock(ctx context.Context, slot uint64) (*Block, error) {
	return c.getBlock(ctx, slot, "full")
}

// GetBlockHeader retrieves a block's hash, height and time without transactions.
func (c *HTTPClient) GetBlockHeader(ctx context.Context, slot uint64) (*Block, error) {
	return c.getBlock(ctx, slot, "none")
}

func (c *HTTPClient) getBlock(ctx context.Context, slot uint64, details string) (*Block, error) {
	params := []interface{}{
		slot,
		map[string]interface{}{
			"encoding":                       "json",
			"transactionDetails":             details,
			"rewards":                        false,
			"commitment":                     defaultCommitment,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *getBlockResult
	if err := c.call(ctx, "getBlock", params, &result); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.blockUnavailable() {
			return nil, fmt.Errorf("%w: slot %d: %s", ErrBlockUnavailable, slot, rpcErr.Message)
		}
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: slot %d", ErrBlockUnavailable, slot)
	}

	return result.toBlock(slot), nil
}

// getBlockResult is the raw block shape shared by getBlock and blockNotification.
type getBlockResult struct {
	Blockhash    string              `json:"blockhash"`
	ParentSlot   uint64              `json:"parentSlot"`
	BlockHeight  *uint64             `json:"blockHeight"`
	BlockTime    *int64              `json:"blockTime"`
	Transactions []getBlockTxWrapper `json:"transactions"`
}

type getBlockTxWrapper struct {
	Transaction getBlockTx          `json:"transaction"`
	Meta        *getTransactionMeta `json:"meta"`
}

type getBlockTx struct {
	Signatures []string               `json:"signatures"`
	Message    *getTransactionMessage `json:"message"`
}

type getTransactionMeta struct {
	Err                  interface{} `json:"err"`
	Fee                  uint64      `json:"fee"`
	LogMessages          []string    `json:"logMessages"`
	ComputeUnitsConsumed *uint64     `json:"computeUnitsConsumed"`
}

type getTransactionMessage struct {
	AccountKeys  []string         `json:"accountKeys"`
	Instructions []getInstruction `json:"instructions"`
}

type getInstruction struct {
	ProgramIDIndex int   `json:"programIdIndex"`
	Accounts       []int `json:"accounts"`
}

func (r *getBlockResult) toBlock(slot uint64) *Block {
	block := &Block{
		Slot:        slot,
		Blockhash:   r.Blockhash,
		ParentSlot:  r.ParentSlot,
		BlockHeight: r.BlockHeight,
		BlockTime:   r.BlockTime,
	}

	for _, w := range r.Transactions {
		tx := Transaction{
			Slot:      slot,
			BlockTime: r.BlockTime,
		}
		if len(w.Transaction.Signatures) > 0 {
			tx.Signature = w.Transaction.Signatures[0]
		}
		if w.Meta != nil {
			tx.Meta = &TransactionMeta{
				Err:                  w.Meta.Err,
				Fee:                  w.Meta.Fee,
				LogMessages:          w.Meta.LogMessages,
				ComputeUnitsConsumed: w.Meta.ComputeUnitsConsumed,
			}
		}
		if m := w.Transaction.Message; m != nil {
			msg := &TransactionMessage{AccountKeys: m.AccountKeys}
			for _, ix := range m.Instructions {
				msg.Instructions = append(msg.Instructions, Instruction{
					ProgramIDIndex: ix.ProgramIDIndex,
					Accounts:       ix.Accounts,
				})
			}
			tx.Message = msg
		}
		block.Transactions = append(block.Transactions, tx)
	}

	return block
}

// GetAccountInfo retrieves account info by public key.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	params := []interface{}{
		address,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": defaultCommitment,
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}

	info := &AccountInfo{
		Slot:       result.Context.Slot,
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 && result.Value.Data[0] != "" {
		data, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
		if err != nil {
			return nil, fmt.Errorf("decode account data for %s: %w", address, err)
		}
		info.Data = data
	}

	return info, nil
}

type getAccountInfoResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetSlotLeaders returns the leaders for [start, start+limit).
func (c *HTTPClient) GetSlotLeaders(ctx context.Context, start, limit uint64) ([]string, error) {
	var result []string
	if err := c.call(ctx, "getSlotLeaders", []interface{}{start, limit}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

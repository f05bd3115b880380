package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// ErrClientClosed is returned by subscribe calls on a terminated client.
var ErrClientClosed = errors.New("websocket client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// SubscribeTimeout bounds waiting for a subscription confirmation.
	SubscribeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// BufferSize is the capacity of each subscription channel.
	BufferSize int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		BufferSize:       1000,
	}
}

// subscription is the delivery target of one subscription id.
// Exactly one of the channels is set.
type subscription struct {
	slots  chan SlotNotification
	blocks chan BlockNotification
}

func (s *subscription) close() {
	if s.slots != nil {
		close(s.slots)
	}
	if s.blocks != nil {
		close(s.blocks)
	}
}

// subscribeResult is delivered to a pending subscribe call.
type subscribeResult struct {
	id  int64
	err error
}

// pendingSub is a subscribe request awaiting confirmation. The read loop
// registers sub under the confirmed id before waking the caller, so
// notifications that follow the confirmation are never missed.
type pendingSub struct {
	sub    *subscription
	result chan subscribeResult
}

// WSClientImpl implements WSClient using gorilla/websocket.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   *zap.Logger

	conn      *websocket.Conn
	writeMu   sync.Mutex
	requestID atomic.Uint64

	// subs maps subscription id to its channel; written under regMu,
	// read lock-free by the read loop.
	subs        *xsync.Map[int64, *subscription]
	regMu       sync.Mutex
	terminated  bool
	pendingSubs *xsync.Map[uint64, *pendingSub]

	done      chan struct{}
	closeOnce sync.Once
	closing   atomic.Bool
	errMu     sync.Mutex
	err       error
	wg        sync.WaitGroup
}

var _ WSClient = (*WSClientImpl)(nil)

// NewWSClient connects to the endpoint. The returned client is ready for subscriptions.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, logger *zap.Logger) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &WSClientImpl{
		endpoint:    endpoint,
		config:      cfg,
		logger:      logger,
		subs:        xsync.NewMap[int64, *subscription](),
		pendingSubs: xsync.NewMap[uint64, *pendingSub](),
		done:        make(chan struct{}),
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// SubscribeSlots subscribes to slot updates.
func (c *WSClientImpl) SubscribeSlots(ctx context.Context) (<-chan SlotNotification, error) {
	ch := make(chan SlotNotification, c.config.BufferSize)
	if err := c.subscribe(ctx, "slotSubscribe", nil, &subscription{slots: ch}); err != nil {
		return nil, err
	}
	return ch, nil
}

// SubscribeBlocks subscribes to all confirmed blocks.
func (c *WSClientImpl) SubscribeBlocks(ctx context.Context) (<-chan BlockNotification, error) {
	params := []interface{}{
		"all",
		map[string]interface{}{
			"commitment":                     defaultCommitment,
			"encoding":                       "json",
			"transactionDetails":             "full",
			"showRewards":                    false,
			"maxSupportedTransactionVersion": 0,
		},
	}
	ch := make(chan BlockNotification, c.config.BufferSize)
	if err := c.subscribe(ctx, "blockSubscribe", params, &subscription{blocks: ch}); err != nil {
		return nil, err
	}
	return ch, nil
}

// register stores a confirmed subscription unless the connection already ended.
func (c *WSClientImpl) register(id int64, sub *subscription) error {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if c.terminated {
		return ErrClientClosed
	}
	c.subs.Store(id, sub)
	return nil
}

// subscribe sends a subscribe request and waits until the read loop has
// registered sub under the confirmed subscription id.
func (c *WSClientImpl) subscribe(ctx context.Context, method string, params []interface{}, sub *subscription) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	reqID := c.requestID.Add(1)
	pending := &pendingSub{sub: sub, result: make(chan subscribeResult, 1)}
	c.pendingSubs.Store(reqID, pending)

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}
	if err := c.writeJSON(req); err != nil {
		c.pendingSubs.Delete(reqID)
		return fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	var cause error
	select {
	case res := <-pending.result:
		if res.err != nil {
			return fmt.Errorf("%s: %w", method, res.err)
		}
		return nil
	case <-timer.C:
		cause = fmt.Errorf("%s: subscription timeout after %v", method, c.config.SubscribeTimeout)
	case <-c.done:
		cause = ErrClientClosed
	case <-ctx.Done():
		cause = ctx.Err()
	}

	// The read loop may have claimed the request already; it then always
	// delivers a result, and a registered subscription must be dropped.
	if _, ok := c.pendingSubs.LoadAndDelete(reqID); !ok {
		if res := <-pending.result; res.err == nil {
			c.subs.Delete(res.id)
		}
	}
	return cause
}

func (c *WSClientImpl) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// Done is closed once the connection has terminated.
func (c *WSClientImpl) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection terminated.
func (c *WSClientImpl) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close closes the WebSocket connection and all subscription channels.
func (c *WSClientImpl) Close() error {
	c.closing.Store(true)
	c.shutdown(nil)

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	_ = c.conn.Close()
	c.wg.Wait()
	return nil
}

// shutdown records the first termination cause and signals done.
func (c *WSClientImpl) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()
		close(c.done)
	})
}

// readLoop reads messages and dispatches them. It is the only sender on
// subscription channels and closes them on exit.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()
	defer c.closeSubscriptions()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.closing.Load() {
				c.shutdown(nil)
			} else {
				c.logger.Warn("websocket read failed", zap.String("endpoint", c.endpoint), zap.Error(err))
				c.shutdown(fmt.Errorf("websocket read: %w", err))
			}
			return
		}

		if err := c.handleMessage(message); err != nil {
			c.logger.Warn("websocket message rejected", zap.Error(err))
			c.shutdown(err)
			c.conn.Close()
			return
		}
	}
}

func (c *WSClientImpl) closeSubscriptions() {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	c.terminated = true
	c.subs.Range(func(id int64, sub *subscription) bool {
		sub.close()
		c.subs.Delete(id)
		return true
	})
}

// handleMessage processes one incoming message. A notification that cannot
// be decoded terminates the stream.
func (c *WSClientImpl) handleMessage(message []byte) error {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	switch {
	case msg.ID != nil:
		c.handleSubscribeResponse(&msg)
		return nil
	case msg.Method == "slotNotification":
		return c.handleSlotNotification(msg.Params)
	case msg.Method == "blockNotification":
		return c.handleBlockNotification(msg.Params)
	default:
		c.logger.Debug("ignoring websocket message", zap.String("method", msg.Method))
		return nil
	}
}

// handleSubscribeResponse registers the confirmed subscription and hands the
// id (or error) to the waiting caller.
func (c *WSClientImpl) handleSubscribeResponse(msg *wsMessage) {
	pending, ok := c.pendingSubs.LoadAndDelete(*msg.ID)
	if !ok {
		return
	}

	var res subscribeResult
	if msg.Error != nil {
		res.err = msg.Error
	} else if err := json.Unmarshal(msg.Result, &res.id); err != nil {
		res.err = fmt.Errorf("decode subscription id: %w", err)
	} else {
		res.err = c.register(res.id, pending.sub)
	}

	pending.result <- res
}

func (c *WSClientImpl) handleSlotNotification(params *wsNotificationParams) error {
	if params == nil {
		return fmt.Errorf("slotNotification without params")
	}

	var value wsSlotValue
	if err := json.Unmarshal(params.Result, &value); err != nil {
		return fmt.Errorf("decode slotNotification: %w", err)
	}

	sub, ok := c.subs.Load(params.Subscription)
	if !ok || sub.slots == nil {
		return nil
	}

	// Blocking send: the channel buffer absorbs bursts, a slow reader applies backpressure.
	select {
	case sub.slots <- SlotNotification{Slot: value.Slot, Parent: value.Parent, Root: value.Root}:
	case <-c.done:
	}
	return nil
}

func (c *WSClientImpl) handleBlockNotification(params *wsNotificationParams) error {
	if params == nil {
		return fmt.Errorf("blockNotification without params")
	}

	var result wsBlockResult
	if err := json.Unmarshal(params.Result, &result); err != nil {
		return fmt.Errorf("decode blockNotification: %w", err)
	}

	sub, ok := c.subs.Load(params.Subscription)
	if !ok || sub.blocks == nil {
		return nil
	}

	notif := BlockNotification{
		Slot: result.Value.Slot,
		Err:  result.Value.Err,
	}
	if result.Value.Block != nil {
		notif.Block = result.Value.Block.toBlock(result.Value.Slot)
	}

	select {
	case sub.blocks <- notif:
	case <-c.done:
	}
	return nil
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				// The read loop observes the broken connection.
				c.logger.Debug("websocket ping failed", zap.Error(err))
			}
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// wsMessage is any server message: a response carries ID, a notification carries Method.
type wsMessage struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *uint64               `json:"id"`
	Result  json.RawMessage       `json:"result"`
	Error   *RPCError             `json:"error"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type wsSlotValue struct {
	Slot   uint64 `json:"slot"`
	Parent uint64 `json:"parent"`
	Root   uint64 `json:"root"`
}

type wsBlockResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value struct {
		Slot  uint64          `json:"slot"`
		Block *getBlockResult `json:"block"`
		Err   interface{}     `json:"err"`
	} `json:"value"`
}

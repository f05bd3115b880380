package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTestServer confirms every subscribe request with a fixed id and then
// runs script with the server-side connection.
func wsTestServer(t *testing.T, subID int64, script func(c *websocket.Conn, method string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				t.Errorf("unmarshal request: %v", err)
				return
			}

			if err := c.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  subID,
			}); err != nil {
				return
			}

			if script != nil {
				script(c, req.Method)
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_SubscribeSlots(t *testing.T) {
	server := wsTestServer(t, 7, func(c *websocket.Conn, method string) {
		if method != "slotSubscribe" {
			t.Errorf("expected slotSubscribe, got %s", method)
		}
		time.Sleep(20 * time.Millisecond)
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "slotNotification",
			"params": map[string]interface{}{
				"subscription": 7,
				"result":       map[string]interface{}{"slot": 101, "parent": 100, "root": 70},
			},
		})
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeSlots(ctx)
	if err != nil {
		t.Fatalf("SubscribeSlots: %v", err)
	}

	select {
	case n := <-ch:
		if n.Slot != 101 || n.Parent != 100 || n.Root != 70 {
			t.Errorf("unexpected notification %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for slot notification")
	}
}

func TestWSClient_NotificationsRightAfterConfirmation(t *testing.T) {
	const burst = 50
	server := wsTestServer(t, 3, func(c *websocket.Conn, method string) {
		for i := 0; i < burst; i++ {
			c.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "slotNotification",
				"params": map[string]interface{}{
					"subscription": 3,
					"result":       map[string]interface{}{"slot": 500 + i, "parent": 499 + i, "root": 400},
				},
			})
		}
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeSlots(ctx)
	if err != nil {
		t.Fatalf("SubscribeSlots: %v", err)
	}

	for i := 0; i < burst; i++ {
		select {
		case n := <-ch:
			if n.Slot != uint64(500+i) {
				t.Fatalf("notification %d: expected slot %d, got %d", i, 500+i, n.Slot)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for notification %d", i)
		}
	}
}

func TestWSClient_SubscribeBlocks(t *testing.T) {
	server := wsTestServer(t, 9, func(c *websocket.Conn, method string) {
		if method != "blockSubscribe" {
			t.Errorf("expected blockSubscribe, got %s", method)
		}
		time.Sleep(20 * time.Millisecond)
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "blockNotification",
			"params": map[string]interface{}{
				"subscription": 9,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 200},
					"value": map[string]interface{}{
						"slot": 200,
						"err":  nil,
						"block": map[string]interface{}{
							"blockhash":  "BlockHash",
							"parentSlot": 199,
							"blockTime":  1700000000,
							"transactions": []map[string]interface{}{{
								"transaction": map[string]interface{}{
									"signatures": []string{"sigA"},
									"message":    map[string]interface{}{"accountKeys": []string{"payer"}},
								},
								"meta": map[string]interface{}{"err": nil, "fee": 5000},
							}},
						},
					},
				},
			},
		})
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeBlocks(ctx)
	if err != nil {
		t.Fatalf("SubscribeBlocks: %v", err)
	}

	select {
	case n := <-ch:
		if n.Slot != 200 || n.Block == nil {
			t.Fatalf("unexpected notification %+v", n)
		}
		if n.Block.Blockhash != "BlockHash" || len(n.Block.Transactions) != 1 {
			t.Errorf("unexpected block %+v", n.Block)
		}
		if n.Block.Transactions[0].Signature != "sigA" || n.Block.Transactions[0].Slot != 200 {
			t.Errorf("unexpected transaction %+v", n.Block.Transactions[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for block notification")
	}
}

func TestWSClient_ConnectionDropClosesSubscriptions(t *testing.T) {
	server := wsTestServer(t, 1, func(c *websocket.Conn, _ string) {
		time.Sleep(20 * time.Millisecond)
		c.Close()
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeSlots(ctx)
	if err != nil {
		t.Fatalf("SubscribeSlots: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after connection drop")
	}
	if client.Err() == nil {
		t.Error("expected termination error after connection drop")
	}
}

func TestWSClient_MalformedNotificationTerminates(t *testing.T) {
	server := wsTestServer(t, 3, func(c *websocket.Conn, _ string) {
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "slotNotification",
			"params":  map[string]interface{}{"subscription": 3, "result": "not-an-object"},
		})
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, err := client.SubscribeSlots(ctx); err != nil && !errors.Is(err, ErrClientClosed) {
		t.Fatalf("SubscribeSlots: %v", err)
	}

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected client to terminate on undecodable notification")
	}
	if client.Err() == nil {
		t.Error("expected decode error")
	}
}

func TestWSClient_SubscribeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		var req wsRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32601, "message": "Method not found"},
		})
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	_, err = client.SubscribeBlocks(ctx)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32601 {
		t.Fatalf("expected RPC error -32601, got %v", err)
	}
}

func TestWSClient_Close(t *testing.T) {
	server := wsTestServer(t, 1, nil)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	ch, err := client.SubscribeSlots(ctx)
	if err != nil {
		t.Fatalf("SubscribeSlots: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("expected subscription channel closed")
	}
	if client.Err() != nil {
		t.Errorf("expected nil Err after clean close, got %v", client.Err())
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}

	if _, err := client.SubscribeSlots(ctx); !errors.Is(err, ErrClientClosed) {
		t.Errorf("expected ErrClientClosed after close, got %v", err)
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	_, err := NewWSClient(context.Background(), "ws://127.0.0.1:1", nil, nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
}

func TestWSClient_CustomConfig(t *testing.T) {
	server := wsTestServer(t, 1, nil)
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.PingInterval = 5 * time.Second
	cfg.BufferSize = 4

	client, err := NewWSClient(context.Background(), wsURL(server), &cfg, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.config.PingInterval)
	}
}

package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newRPCServer serves JSON-RPC requests; respond returns either a result or an *RPCError.
func newRPCServer(t *testing.T, respond func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch v := respond(req).(type) {
		case *RPCError:
			resp["error"] = v
		default:
			resp["result"] = v
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPClient_GetSlot(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getSlot" {
			t.Errorf("expected method getSlot, got %s", req.Method)
		}
		return uint64(250_000_000)
	})
	defer server.Close()

	slot, err := NewHTTPClient(server.URL).GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 250_000_000 {
		t.Errorf("expected slot 250000000, got %d", slot)
	}
}

func TestHTTPClient_GetBlock(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getBlock" {
			t.Errorf("expected method getBlock, got %s", req.Method)
		}
		return map[string]interface{}{
			"blockhash":   "Hash111",
			"parentSlot":  12344,
			"blockHeight": 11000,
			"blockTime":   int64(1700000000),
			"transactions": []map[string]interface{}{
				{
					"transaction": map[string]interface{}{
						"signatures": []string{"sig1"},
						"message": map[string]interface{}{
							"accountKeys": []string{"payer", "Prog111"},
							"instructions": []map[string]interface{}{
								{"programIdIndex": 1, "accounts": []int{0}},
							},
						},
					},
					"meta": map[string]interface{}{
						"err":                  nil,
						"fee":                  5000,
						"logMessages":          []string{"log1", "log2"},
						"computeUnitsConsumed": 1200,
					},
				},
			},
		}
	})
	defer server.Close()

	block, err := NewHTTPClient(server.URL).GetBlock(context.Background(), 12345)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}

	if block.Slot != 12345 || block.ParentSlot != 12344 {
		t.Errorf("unexpected slot/parent %d/%d", block.Slot, block.ParentSlot)
	}
	if block.Blockhash != "Hash111" {
		t.Errorf("expected Hash111, got %s", block.Blockhash)
	}
	if block.BlockHeight == nil || *block.BlockHeight != 11000 {
		t.Errorf("expected height 11000")
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(block.Transactions))
	}

	tx := block.Transactions[0]
	if tx.Signature != "sig1" {
		t.Errorf("expected sig1, got %s", tx.Signature)
	}
	if tx.Meta == nil || tx.Meta.Fee != 5000 || tx.Meta.ComputeUnitsConsumed == nil || *tx.Meta.ComputeUnitsConsumed != 1200 {
		t.Errorf("unexpected meta %+v", tx.Meta)
	}
	if tx.Message == nil || len(tx.Message.Instructions) != 1 || tx.Message.Instructions[0].ProgramIDIndex != 1 {
		t.Errorf("unexpected message %+v", tx.Message)
	}
}

func TestHTTPClient_GetBlock_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		result interface{}
	}{
		{"skipped code", &RPCError{Code: -32007, Message: "Slot 5 was skipped, or missing due to ledger jump to recent snapshot"}},
		{"not available code", &RPCError{Code: -32004, Message: "Block not available for slot 5"}},
		{"message only", &RPCError{Code: -32000, Message: "block not available"}},
		{"null result", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newRPCServer(t, func(rpcRequest) interface{} { return tt.result })
			defer server.Close()

			_, err := NewHTTPClient(server.URL).GetBlock(context.Background(), 5)
			if !errors.Is(err, ErrBlockUnavailable) {
				t.Fatalf("expected ErrBlockUnavailable, got %v", err)
			}
		})
	}
}

func TestHTTPClient_GetBlockHeader(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		cfg, _ := req.Params[1].(map[string]interface{})
		if cfg["transactionDetails"] != "none" {
			t.Errorf("expected transactionDetails none, got %v", cfg["transactionDetails"])
		}
		return map[string]interface{}{"blockhash": "H", "blockHeight": 7}
	})
	defer server.Close()

	block, err := NewHTTPClient(server.URL).GetBlockHeader(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetBlockHeader: %v", err)
	}
	if block.Blockhash != "H" || len(block.Transactions) != 0 {
		t.Errorf("unexpected header %+v", block)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  999,
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	var attempts atomic.Int32
	server := newRPCServer(t, func(rpcRequest) interface{} {
		attempts.Add(1)
		return &RPCError{Code: -32600, Message: "Invalid Request"}
	})
	defer server.Close()

	_, err := NewHTTPClient(server.URL).GetSlot(context.Background())

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %T", err)
	}
	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
	if attempts.Load() != 1 {
		t.Errorf("RPC errors must not be retried, got %d attempts", attempts.Load())
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getAccountInfo" {
			t.Errorf("expected method getAccountInfo, got %s", req.Method)
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 777},
			"value": map[string]interface{}{
				"lamports":   1_000_000,
				"owner":      "11111111111111111111111111111111",
				"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"executable": false,
				"rentEpoch":  uint64(18446744073709551615),
			},
		}
	})
	defer server.Close()

	info, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "Acc")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info.Slot != 777 || info.Lamports != 1_000_000 {
		t.Errorf("unexpected info %+v", info)
	}
	if !bytes.Equal(info.Data, data) {
		t.Errorf("expected data %v, got %v", data, info.Data)
	}
	if info.RentEpoch != 18446744073709551615 {
		t.Errorf("expected max rent epoch, got %d", info.RentEpoch)
	}
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := newRPCServer(t, func(rpcRequest) interface{} {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value":   nil,
		}
	})
	defer server.Close()

	_, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "missing")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestHTTPClient_GetSlotLeaders(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getSlotLeaders" {
			t.Errorf("expected method getSlotLeaders, got %s", req.Method)
		}
		return []string{"Leader1"}
	})
	defer server.Close()

	leaders, err := NewHTTPClient(server.URL).GetSlotLeaders(context.Background(), 100, 1)
	if err != nil {
		t.Fatalf("GetSlotLeaders: %v", err)
	}
	if len(leaders) != 1 || leaders[0] != "Leader1" {
		t.Errorf("unexpected leaders %v", leaders)
	}
}

func TestHTTPClient_RateLimit(t *testing.T) {
	server := newRPCServer(t, func(rpcRequest) interface{} { return 1 })
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRateLimit(5))
	ctx := context.Background()

	start := time.Now()
	// Burst of 5 is immediate, the next two wait ~200ms each.
	for i := 0; i < 7; i++ {
		if _, err := client.GetSlot(ctx); err != nil {
			t.Fatalf("GetSlot: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("expected rate limiting to delay calls, took %v", elapsed)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHTTPClient(server.URL).GetSlot(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

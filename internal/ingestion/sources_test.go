package ingestion_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-indexer/internal/ingestion"
	"solana-indexer/internal/solana"
	solanastub "solana-indexer/internal/solana/stub"
)

func receiveEvent(t *testing.T, ch <-chan ingestion.SlotEvent) ingestion.SlotEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "slot sequence closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for slot event")
		return ingestion.SlotEvent{}
	}
}

func u64(v uint64) *uint64 { return &v }

func blockWithTxs(slot uint64, sigs ...string) *solana.Block {
	b := &solana.Block{Slot: slot, Blockhash: "hash", ParentSlot: slot - 1, BlockHeight: u64(slot - 10)}
	for _, sig := range sigs {
		b.Transactions = append(b.Transactions, solana.Transaction{
			Slot:      slot,
			Signature: sig,
			Meta:      &solana.TransactionMeta{Fee: 5000, LogMessages: []string{"Program log: a"}},
			Message: &solana.TransactionMessage{
				AccountKeys:  []string{"payer", "11111111111111111111111111111111"},
				Instructions: []solana.Instruction{{ProgramIDIndex: 1}},
			},
		})
	}
	return b
}

func TestPollingSource_EmitsHeadRangeInOrder(t *testing.T) {
	rpc := solanastub.NewRPCClient()
	rpc.Slots = []uint64{100, 100, 103}
	rpc.AddBlock(blockWithTxs(102, "sig-a", "sig-b"))

	src := ingestion.NewPollingSource(ingestion.PollingOptions{
		Chain:    solana.NewChain(rpc, nil),
		Interval: 5 * time.Millisecond,
	})
	t.Cleanup(func() { _ = src.Close() })

	sub, err := src.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sub.Transactions)

	seed := receiveEvent(t, sub.Slots)
	assert.Equal(t, uint64(100), seed.Record.Number)
	assert.Nil(t, seed.Record.Parent)

	for _, want := range []uint64{101, 102, 103} {
		ev := receiveEvent(t, sub.Slots)
		assert.Equal(t, want, ev.Record.Number)
		require.NotNil(t, ev.Record.Parent)
		assert.Equal(t, want-1, *ev.Record.Parent)
		assert.Equal(t, "Confirmed", ev.Record.Status.String())

		if want == 102 {
			require.Len(t, ev.Transactions, 2)
			assert.Equal(t, "sig-a", ev.Transactions[0].Signature)
			assert.Equal(t, "11111111111111111111111111111111", ev.Transactions[0].Program)
			require.NotNil(t, ev.Record.BlockHash)
			assert.Equal(t, "hash", *ev.Record.BlockHash)
		} else {
			assert.Empty(t, ev.Transactions)
			assert.Nil(t, ev.Record.BlockHash)
		}
	}
	assert.Equal(t, 4, rpc.CallCount("getBlock"), "one full block fetch per slot")
	assert.Zero(t, rpc.CallCount("getBlockHeader"))
}

func TestPollingSource_MaxCatchUp(t *testing.T) {
	rpc := solanastub.NewRPCClient()
	rpc.Slots = []uint64{10, 100}

	src := ingestion.NewPollingSource(ingestion.PollingOptions{
		Chain:            solana.NewChain(rpc, nil),
		Interval:         5 * time.Millisecond,
		MaxCatchUp:       3,
		SkipTransactions: true,
	})
	t.Cleanup(func() { _ = src.Close() })

	sub, err := src.Subscribe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(10), receiveEvent(t, sub.Slots).Record.Number)
	parent := uint64(10)
	for _, want := range []uint64{98, 99, 100} {
		rec := receiveEvent(t, sub.Slots).Record
		assert.Equal(t, want, rec.Number)
		require.NotNil(t, rec.Parent)
		assert.Equal(t, parent, *rec.Parent, "parent is the previously emitted slot")
		parent = want
	}
	assert.Zero(t, rpc.CallCount("getBlock"))
}

func TestPollingSource_RetriesFirstHeadQuery(t *testing.T) {
	rpc := solanastub.NewRPCClient()
	rpc.SlotFailures = 2
	rpc.Slots = []uint64{50}

	src := ingestion.NewPollingSource(ingestion.PollingOptions{
		Chain:            solana.NewChain(rpc, nil),
		Interval:         5 * time.Millisecond,
		SkipTransactions: true,
	})
	t.Cleanup(func() { _ = src.Close() })

	sub, err := src.Subscribe(context.Background())
	require.NoError(t, err)

	seed := receiveEvent(t, sub.Slots)
	assert.Equal(t, uint64(50), seed.Record.Number)
	assert.Nil(t, seed.Record.Parent)
	assert.GreaterOrEqual(t, rpc.CallCount("getSlot"), 3)
}

func TestPollingSource_CloseEndsSequence(t *testing.T) {
	rpc := solanastub.NewRPCClient()
	rpc.Slots = []uint64{1}

	src := ingestion.NewPollingSource(ingestion.PollingOptions{
		Chain:    solana.NewChain(rpc, nil),
		Interval: 5 * time.Millisecond,
	})
	sub, err := src.Subscribe(context.Background())
	require.NoError(t, err)
	receiveEvent(t, sub.Slots)

	require.NoError(t, src.Close())
	_, ok := <-sub.Slots
	assert.False(t, ok)
}

func TestStreamingSource_DialFailure(t *testing.T) {
	src := ingestion.NewStreamingSource(ingestion.StreamingOptions{
		Dial: func(context.Context) (solana.WSClient, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	})
	_, err := src.Subscribe(context.Background())
	assert.ErrorIs(t, err, ingestion.ErrSourceUnavailable)
}

func TestStreamingSource_SubscribeFailureClosesClient(t *testing.T) {
	ws := solanastub.NewWSClient()
	ws.SubscribeErr = errors.New("method not found")

	src := ingestion.NewStreamingSource(ingestion.StreamingOptions{
		Dial: func(context.Context) (solana.WSClient, error) { return ws, nil },
	})
	_, err := src.Subscribe(context.Background())
	assert.ErrorIs(t, err, ingestion.ErrSourceUnavailable)
	assert.True(t, ws.Closed())
}

func TestStreamingSource_SlotsAndBlocks(t *testing.T) {
	ws := solanastub.NewWSClient()
	src := ingestion.NewStreamingSource(ingestion.StreamingOptions{
		Dial: func(context.Context) (solana.WSClient, error) { return ws, nil },
	})
	t.Cleanup(func() { _ = src.Close() })

	sub, err := src.Subscribe(context.Background())
	require.NoError(t, err)

	ws.Slots <- solana.SlotNotification{Slot: 200, Parent: 199, Root: 168}
	ev := receiveEvent(t, sub.Slots)
	assert.Equal(t, uint64(200), ev.Record.Number)
	assert.Equal(t, uint64(199), *ev.Record.Parent)
	assert.Equal(t, "Processed", ev.Record.Status.String())

	ws.Blocks <- solana.BlockNotification{Slot: 201, Block: blockWithTxs(201, "sig-1")}
	select {
	case d := <-sub.Transactions:
		assert.Equal(t, "sig-1", d.Signature)
		assert.Equal(t, uint64(5000), d.Fee)
		assert.Equal(t, 1, d.InstructionCount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transaction")
	}

	confirmed := receiveEvent(t, sub.Slots)
	assert.Equal(t, uint64(201), confirmed.Record.Number)
	assert.Equal(t, "Confirmed", confirmed.Record.Status.String())
	require.NotNil(t, confirmed.Record.BlockHeight)
	assert.Equal(t, uint64(191), *confirmed.Record.BlockHeight)
}

func TestStreamingSource_DropReportsError(t *testing.T) {
	ws := solanastub.NewWSClient()
	src := ingestion.NewStreamingSource(ingestion.StreamingOptions{
		Dial: func(context.Context) (solana.WSClient, error) { return ws, nil },
	})
	t.Cleanup(func() { _ = src.Close() })

	sub, err := src.Subscribe(context.Background())
	require.NoError(t, err)

	ws.Drop(errors.New("read: connection reset by peer"))

	select {
	case err := <-sub.Errors:
		assert.ErrorContains(t, err, "connection reset")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal error")
	}

	_, ok := <-sub.Slots
	assert.False(t, ok)
	_, ok = <-sub.Transactions
	assert.False(t, ok)
}

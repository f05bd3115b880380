package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"solana-indexer/internal/domain"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return redis.NewIntResult(0, p.err)
	}
	p.msgs = append(p.msgs, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) AccountChanged(context.Context, AccountChange) error {
	n.calls++
	return n.err
}

func testChange() AccountChange {
	return AccountChange{
		Previous:   &domain.AccountState{Address: "addr1", Lamports: 1000, Data: []byte{1}},
		Current:    &domain.AccountState{Address: "addr1", Slot: 42, Lamports: 750, Owner: "owner", Data: []byte{1, 2}},
		DetectedAt: time.Unix(1700000000, 0),
	}
}

func TestAccountChange_Helpers(t *testing.T) {
	c := testChange()
	assert.Equal(t, int64(-250), c.LamportsDelta())
	assert.True(t, c.DataChanged())

	c.Current.Data = []byte{1}
	assert.False(t, c.DataChanged())
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.AccountChanged(context.Background(), testChange()))

	entries := logs.FilterMessage("account changed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "addr1", fields["address"])
	assert.Equal(t, int64(-250), fields["delta"])
}

func TestRedisNotifier_AccountChanged(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedisNotifier(pub, nil)

	require.NoError(t, n.AccountChanged(context.Background(), testChange()))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, ChannelAccountChanged, pub.msgs[0].channel)

	var msg accountChangedMessage
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &msg))
	assert.Equal(t, "addr1", msg.Address)
	assert.Equal(t, uint64(42), msg.Slot)
	assert.Equal(t, uint64(1000), msg.PreviousLamports)
	assert.Equal(t, uint64(750), msg.Lamports)
	assert.True(t, msg.DataChanged)
	assert.Equal(t, 2, msg.DataLen)
	assert.Equal(t, int64(1700000000), msg.DetectedAt)
}

func TestRedisNotifier_PublishSlot(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedisNotifier(pub, nil)

	parent := uint64(99)
	rec := &domain.SlotRecord{Number: 100, Parent: &parent, Status: domain.SlotStatusConfirmed, Timestamp: 1700000000}
	require.NoError(t, n.PublishSlot(context.Background(), rec))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, ChannelSlot, pub.msgs[0].channel)
	assert.JSONEq(t, `{"number":100,"parent":99,"status":"Confirmed","timestamp":1700000000}`, string(pub.msgs[0].payload))
}

func TestRedisNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	core, logs := observer.New(zap.WarnLevel)
	n := NewRedisNotifier(pub, zap.New(core))

	err := n.AccountChanged(context.Background(), testChange())
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 1, logs.FilterMessage("failed to publish Redis message").Len())
}

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	first := &countingNotifier{err: errors.New("first failed")}
	second := &countingNotifier{}
	m := Multi{first, second}

	err := m.AccountChanged(context.Background(), testChange())
	assert.ErrorContains(t, err, "first failed")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	assert.NoError(t, Multi{second}.AccountChanged(context.Background(), testChange()))
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url://", nil)
	assert.Error(t, err)
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solana-indexer/internal/domain"
)

// Pub/Sub channels.
const (
	ChannelAccountChanged = "solana-indexer:account.changed"
	ChannelSlot           = "solana-indexer:slot"
)

// Publisher is the subset of *redis.Client used for notifications.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

var _ Publisher = (*redis.Client)(nil)

// NewRedisClient connects to the server at url (redis://[:password@]host:port/db)
// and verifies the connection with PING.
func NewRedisClient(ctx context.Context, url string, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return rdb, nil
}

// accountChangedMessage is the JSON payload on ChannelAccountChanged.
type accountChangedMessage struct {
	Address          string `json:"address"`
	Slot             uint64 `json:"slot"`
	Owner            string `json:"owner"`
	PreviousLamports uint64 `json:"previous_lamports"`
	Lamports         uint64 `json:"lamports"`
	Delta            int64  `json:"delta"`
	DataChanged      bool   `json:"data_changed"`
	DataLen          int    `json:"data_len"`
	DetectedAt       int64  `json:"detected_at"`
}

// slotMessage is the JSON payload on ChannelSlot.
type slotMessage struct {
	Number      uint64  `json:"number"`
	Parent      *uint64 `json:"parent,omitempty"`
	Status      string  `json:"status"`
	Timestamp   int64   `json:"timestamp"`
	BlockHash   *string `json:"block_hash,omitempty"`
	BlockHeight *uint64 `json:"block_height,omitempty"`
}

// RedisNotifier publishes notifications as JSON over Redis Pub/Sub.
// Publishing is best-effort: failures are logged and returned, never retried.
type RedisNotifier struct {
	pub    Publisher
	logger *zap.Logger
}

var _ Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier creates a RedisNotifier over pub.
func NewRedisNotifier(pub Publisher, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{pub: pub, logger: logger}
}

// AccountChanged publishes change on ChannelAccountChanged.
func (n *RedisNotifier) AccountChanged(ctx context.Context, change AccountChange) error {
	msg := accountChangedMessage{
		Address:          change.Current.Address,
		Slot:             change.Current.Slot,
		Owner:            change.Current.Owner,
		PreviousLamports: change.Previous.Lamports,
		Lamports:         change.Current.Lamports,
		Delta:            change.LamportsDelta(),
		DataChanged:      change.DataChanged(),
		DataLen:          len(change.Current.Data),
		DetectedAt:       change.DetectedAt.Unix(),
	}
	return n.publish(ctx, ChannelAccountChanged, msg)
}

// PublishSlot publishes rec on ChannelSlot.
func (n *RedisNotifier) PublishSlot(ctx context.Context, rec *domain.SlotRecord) error {
	msg := slotMessage{
		Number:      rec.Number,
		Parent:      rec.Parent,
		Status:      rec.Status.String(),
		Timestamp:   rec.Timestamp,
		BlockHash:   rec.BlockHash,
		BlockHeight: rec.BlockHeight,
	}
	return n.publish(ctx, ChannelSlot, msg)
}

func (n *RedisNotifier) publish(ctx context.Context, channel string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", channel, err)
	}
	if err := n.pub.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.Warn("failed to publish Redis message",
			zap.String("channel", channel),
			zap.Error(err))
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

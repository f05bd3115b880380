// Package notify delivers account-change and slot notifications.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"solana-indexer/internal/domain"
)

// AccountChange describes a detected lamports or data change.
type AccountChange struct {
	Previous   *domain.AccountState
	Current    *domain.AccountState
	DetectedAt time.Time
}

// LamportsDelta returns Current.Lamports - Previous.Lamports.
func (c AccountChange) LamportsDelta() int64 {
	return int64(c.Current.Lamports) - int64(c.Previous.Lamports)
}

// DataChanged reports whether the account data differs.
func (c AccountChange) DataChanged() bool {
	return string(c.Current.Data) != string(c.Previous.Data)
}

// Notifier receives account changes. Implementations must be safe for
// concurrent use.
type Notifier interface {
	AccountChanged(ctx context.Context, change AccountChange) error
}

// LogNotifier logs each change at Info.
type LogNotifier struct {
	logger *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier. A nil logger disables output.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// AccountChanged logs the change.
func (n *LogNotifier) AccountChanged(_ context.Context, change AccountChange) error {
	n.logger.Info("account changed",
		zap.String("address", change.Current.Address),
		zap.Uint64("slot", change.Current.Slot),
		zap.Uint64("previous_lamports", change.Previous.Lamports),
		zap.Uint64("lamports", change.Current.Lamports),
		zap.Int64("delta", change.LamportsDelta()),
		zap.Bool("data_changed", change.DataChanged()))
	return nil
}

// Multi fans a change out to every notifier. All notifiers are called even
// when some fail; the failures are joined.
type Multi []Notifier

var _ Notifier = Multi(nil)

// AccountChanged calls each notifier in order.
func (m Multi) AccountChanged(ctx context.Context, change AccountChange) error {
	var errs []error
	for _, n := range m {
		if err := n.AccountChanged(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

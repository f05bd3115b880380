package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-indexer/internal/config"
	"solana-indexer/internal/domain"
	"solana-indexer/internal/ingestion"
)

const statsInterval = 30 * time.Second

// displayOptions controls the slot/transaction display consumer.
type displayOptions struct {
	transactions bool
	leaders      bool
	publish      bool
}

// runStart runs the full pipeline plus the account watcher over the active
// watch-list.
func runStart(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	leaders := fs.Bool("leaders", false, "Show the leader of each slot")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	tracker, err := a.newTracker(true, true)
	if err != nil {
		return err
	}

	addresses, err := a.store.GetActiveWatchAddresses(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tracker.Run(gctx) })
	g.Go(func() error {
		return a.display(gctx, tracker, displayOptions{transactions: true, leaders: *leaders, publish: true})
	})
	g.Go(func() error { return a.reportStats(gctx, tracker, statsInterval) })

	if len(addresses) > 0 {
		w, err := a.newWatcher(addresses)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	} else {
		logger.Info("no active wallets, account watcher disabled")
	}

	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return a.serveMetrics(gctx) })
	}

	return g.Wait()
}

// runSlots tracks slots by polling only.
func runSlots(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("slots", flag.ContinueOnError)
	transactions := fs.Bool("transactions", false, "Fetch and show transactions of each slot")
	leaders := fs.Bool("leaders", false, "Show the leader of each slot")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	tracker, err := a.newTracker(false, *transactions)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tracker.Run(gctx) })
	g.Go(func() error {
		return a.display(gctx, tracker, displayOptions{transactions: *transactions, leaders: *leaders})
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return a.serveMetrics(gctx) })
	}

	return g.Wait()
}

// display drains the tracker's consumer channels until both are closed.
func (a *app) display(ctx context.Context, tracker *ingestion.Tracker, opts displayOptions) error {
	slots, txs := tracker.Slots(), tracker.Transactions()
	for slots != nil || txs != nil {
		select {
		case rec, ok := <-slots:
			if !ok {
				slots = nil
				continue
			}
			a.showSlot(ctx, rec, opts)
		case d, ok := <-txs:
			if !ok {
				txs = nil
				continue
			}
			if opts.transactions {
				a.showTransaction(d)
			}
		}
	}
	return nil
}

func (a *app) showSlot(ctx context.Context, rec *domain.SlotRecord, opts displayOptions) {
	fields := []zap.Field{
		zap.Uint64("slot", rec.Number),
		zap.String("status", rec.Status.String()),
	}
	if rec.Parent != nil {
		fields = append(fields, zap.Uint64("parent", *rec.Parent))
	}
	if rec.BlockHash != nil {
		fields = append(fields, zap.String("hash", *rec.BlockHash))
	}
	if rec.BlockHeight != nil {
		fields = append(fields, zap.Uint64("height", *rec.BlockHeight))
	}
	if opts.leaders {
		if leader, err := a.chain.SlotLeader(ctx, rec.Number); err == nil {
			fields = append(fields, zap.String("leader", leader))
		} else if ctx.Err() == nil {
			a.logger.Debug("leader lookup failed", zap.Uint64("slot", rec.Number), zap.Error(err))
		}
	}
	a.logger.Info("slot", fields...)

	if opts.publish && a.publisher != nil {
		_ = a.publisher.PublishSlot(ctx, rec)
	}
}

func (a *app) showTransaction(d *domain.TransactionDetail) {
	a.logger.Info("transaction",
		zap.String("signature", d.Signature),
		zap.Uint64("slot", d.Slot),
		zap.Bool("success", d.Success),
		zap.Uint64("fee", d.Fee),
		zap.String("program", d.Program),
		zap.Int("instructions", d.InstructionCount),
		zap.Uint64("compute_units", d.ComputeUnits))
}

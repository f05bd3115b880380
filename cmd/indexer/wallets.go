package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-indexer/internal/config"
	"solana-indexer/internal/solana"
	"solana-indexer/internal/storage"
)

const walletsUsage = "usage: wallets add|remove|list|watch [flags]"

func runWallets(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New(walletsUsage)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if args[0] == "watch" {
		addresses, err := a.store.GetActiveWatchAddresses(ctx)
		if err != nil {
			return err
		}
		if len(addresses) == 0 {
			return errors.New("no active wallets; add one with: wallets add -address <addr>")
		}
		return a.watch(ctx, addresses)
	}

	return walletCommand(ctx, a.store, args, os.Stdout)
}

// walletCommand runs the add, remove and list subcommands against store.
func walletCommand(ctx context.Context, store storage.WatchStore, args []string, out io.Writer) error {
	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("wallets add", flag.ContinueOnError)
		address := fs.String("address", "", "Wallet address (base58)")
		name := fs.String("name", "", "Display name")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if err := solana.ValidateAddress(*address); err != nil {
			return err
		}
		var namePtr *string
		if *name != "" {
			namePtr = name
		}
		if err := store.AddWatch(ctx, *address, namePtr); err != nil {
			return fmt.Errorf("add wallet: %w", err)
		}
		fmt.Fprintf(out, "Added wallet %s\n", *address)
		return nil

	case "remove":
		fs := flag.NewFlagSet("wallets remove", flag.ContinueOnError)
		address := fs.String("address", "", "Wallet address (base58)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if err := store.RemoveWatch(ctx, *address); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("wallet %s is not in the watch-list", *address)
			}
			return fmt.Errorf("remove wallet: %w", err)
		}
		fmt.Fprintf(out, "Removed wallet %s\n", *address)
		return nil

	case "list":
		fs := flag.NewFlagSet("wallets list", flag.ContinueOnError)
		all := fs.Bool("all", false, "Include inactive wallets")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		entries, err := store.ListWatches(ctx, !*all)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No wallets.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ADDRESS\tNAME\tKIND\tACTIVE\tCREATED")
		for _, e := range entries {
			name := "-"
			if e.DisplayName != nil {
				name = *e.DisplayName
			}
			kind, err := solana.AddressKind(e.Address)
			if err != nil {
				kind = "invalid"
			}
			created := time.Unix(e.CreatedAt, 0).UTC().Format(time.RFC3339)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", e.Address, name, kind, e.Active, created)
		}
		return tw.Flush()

	default:
		return fmt.Errorf("unknown wallets command %q; %s", args[0], walletsUsage)
	}
}

// runWatch watches a single address.
func runWatch(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: watch <address>")
	}
	if err := solana.ValidateAddress(args[0]); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.watch(ctx, args)
}

// watch runs the account watcher over addresses, with the metrics server
// when configured.
func (a *app) watch(ctx context.Context, addresses []string) error {
	w, err := a.newWatcher(addresses)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	if a.cfg.Metrics.Addr != "" {
		g.Go(func() error { return a.serveMetrics(gctx) })
	}
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"solana-indexer/internal/config"
	"solana-indexer/internal/logging"
	"solana-indexer/internal/storage"
)

const usageText = `Usage: indexer [global flags] <command> [flags]

Commands:
  start [-leaders]                     track slots and transactions, watch active wallets
  slots [-transactions] [-leaders]     track slots by polling only
  wallets add -address A [-name N]     add a wallet to the watch-list
  wallets remove -address A            deactivate a wallet
  wallets list [-all]                  list watched wallets
  wallets watch                        watch all active wallets
  watch <address>                      watch a single address

Global flags:
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of configuration")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *useMemory {
		cfg.Storage.Backend = storage.BackendMemory
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()

		// A second signal forces exit.
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger, args)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	switch args[0] {
	case "start":
		return runStart(ctx, cfg, logger, args[1:])
	case "slots":
		return runSlots(ctx, cfg, logger, args[1:])
	case "wallets":
		return runWallets(ctx, cfg, logger, args[1:])
	case "watch":
		return runWatch(ctx, cfg, logger, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

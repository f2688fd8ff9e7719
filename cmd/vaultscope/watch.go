package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/metrics"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/postgres"
	"vaultScope/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the pool's Swap, Mint, Burn and Collect events",
		RunE:  runWatch,
	}
	fs := cmd.Flags()
	fs.String("rpc", "", "EVM RPC URL")
	fs.Float64("rpc-rps", 20, "max RPC requests per second (0 disables throttling)")
	fs.Int("rpc-burst", 10, "RPC rate limiter burst")
	fs.String("pool", "", "pool contract address")
	fs.String("pool-name", "", "pool name in the contracts table, used when --pool is empty")
	fs.Uint64("from", 0, "start block (inclusive)")
	fs.Uint64("to", 0, "end block (inclusive), 0 follows the chain head")
	fs.Uint64("batch-size", 2000, "blocks per batch")
	fs.Uint64("confirmations", 2, "blocks to stay behind the head")
	fs.Duration("poll-interval", 12*time.Second, "wait between head polls once caught up")
	fs.String("out", "./data/pool_events.jsonl", "output JSONL path, empty disables the file")
	fs.String("checkpoint", "./data/watch_checkpoint.json", "checkpoint file path")
	fs.Bool("checkpoint-enabled", true, "enable checkpointing")
	fs.Bool("timestamps", false, "attach block timestamps to events")
	fs.Bool("store-events", false, "write events to the pool_events table (requires pg-dsn)")
	fs.Int("max-retries", 5, "maximum retry attempts")
	fs.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fs.String("pg-dsn", "", "Postgres DSN")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.ValidateChain(); err != nil {
		return err
	}
	if cfg.Watch.StoreEvents && cfg.PGDSN == "" {
		return fmt.Errorf("store-events requires pg-dsn")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.WithRateLimit(cfg.RPCRate, cfg.RPCBurst))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	var store *postgres.Store
	if cfg.PGDSN != "" {
		if store, err = postgres.NewStore(ctx, cfg.PGDSN); err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
	}

	a := &app{cfg: cfg, logger: logger, store: store}
	poolAddr, err := a.resolvePool(ctx)
	if err != nil {
		return err
	}

	var sinks storage.MultiSink
	if cfg.Watch.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Watch.Out))
	}
	if cfg.Watch.StoreEvents {
		sinks = append(sinks, store)
	}
	if len(sinks) == 0 {
		return fmt.Errorf("no event output configured: set out or store-events")
	}

	opts := []watcher.Option{watcher.WithLogger(logger), watcher.WithMetrics(metrics.New())}
	if cfg.Watch.CheckpointEnabled {
		var cp watcher.Checkpointer = watcher.NewFileCheckpoint(cfg.Watch.Checkpoint, poolAddr.Hex())
		if store != nil {
			cp = watcher.NewStoreCheckpoint(store, "watch:"+poolAddr.Hex())
		}
		opts = append(opts, watcher.WithCheckpoint(cp))
	}

	w, err := watcher.New(watcher.Config{
		Pool:          poolAddr,
		FromBlock:     cfg.Watch.From,
		ToBlock:       cfg.Watch.To,
		BatchSize:     cfg.Watch.BatchSize,
		Confirmations: cfg.Watch.Confirmations,
		PollInterval:  cfg.Watch.PollInterval,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
		Timestamps:    cfg.Watch.Timestamps,
	}, client, sinks, opts...)
	if err != nil {
		return err
	}

	logger.Info("watch start",
		zap.String("pool", poolAddr.Hex()),
		zap.Uint64("from", cfg.Watch.From),
		zap.Uint64("to", cfg.Watch.To),
		zap.Uint64("batch_size", cfg.Watch.BatchSize),
		zap.String("out", cfg.Watch.Out),
		zap.Bool("store_events", cfg.Watch.StoreEvents),
		zap.Bool("checkpoint_enabled", cfg.Watch.CheckpointEnabled),
	)

	if err := w.Run(ctx); err != nil {
		return err
	}
	if cfg.Watch.StoreEvents {
		stored, err := store.CountEvents(context.Background(), poolAddr.Hex())
		if err != nil {
			return fmt.Errorf("count stored events: %w", err)
		}
		logger.Info("watch done", zap.String("pool", poolAddr.Hex()), zap.Int64("stored_events", stored))
	}
	return nil
}

package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/pool"
	"vaultScope/internal/storage"
)

// LogSource is the chain access the watcher needs. *chain.Client satisfies it.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Config holds runtime settings for the watcher. A zero ToBlock follows
// the chain head until the context is cancelled.
type Config struct {
	Pool          common.Address
	FromBlock     uint64
	ToBlock       uint64
	BatchSize     uint64
	Confirmations uint64
	PollInterval  time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	Timestamps    bool
}

// Watcher polls a pool's Swap, Mint, Burn and Collect logs and hands the
// decoded events to a sink.
type Watcher struct {
	cfg        Config
	source     LogSource
	decoder    *pool.Decoder
	sink       storage.EventSink
	checkpoint Checkpointer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithCheckpoint(cp Checkpointer) Option {
	return func(w *Watcher) {
		w.checkpoint = cp
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New builds a Watcher.
func New(cfg Config, source LogSource, sink storage.EventSink, opts ...Option) (*Watcher, error) {
	if source == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("event sink is nil")
	}
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if cfg.Pool == (common.Address{}) {
		return nil, fmt.Errorf("pool address is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}
	decoder, err := pool.NewDecoder()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:     cfg,
		source:  source,
		decoder: decoder,
		sink:    sink,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes blocks until ToBlock is reached or ctx is cancelled.
// Cancellation is a clean stop and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	next, err := w.startBlock(ctx)
	if err != nil {
		return err
	}

	for {
		head, err := w.head(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if next <= head {
			last, err := w.process(ctx, next, head)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			next = last + 1
		}

		if w.cfg.ToBlock > 0 && next > w.cfg.ToBlock {
			w.logger.Info("watch range complete", zap.Uint64("to", w.cfg.ToBlock))
			return nil
		}

		timer := time.NewTimer(w.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (w *Watcher) startBlock(ctx context.Context) (uint64, error) {
	from := w.cfg.FromBlock
	if from == 0 {
		latest, err := w.latestBlock(ctx)
		if err != nil {
			return 0, fmt.Errorf("get latest block: %w", err)
		}
		from = latest
	}
	if w.checkpoint == nil {
		return from, nil
	}
	last, ok, err := w.checkpoint.Load(ctx)
	if err != nil {
		return 0, err
	}
	if ok && last >= from {
		from = last + 1
		w.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
	}
	return from, nil
}

// head is the newest block considered final, capped at ToBlock.
func (w *Watcher) head(ctx context.Context) (uint64, error) {
	latest, err := w.latestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	head := uint64(0)
	if latest > w.cfg.Confirmations {
		head = latest - w.cfg.Confirmations
	}
	if w.cfg.ToBlock > 0 && head > w.cfg.ToBlock {
		head = w.cfg.ToBlock
	}
	return head, nil
}

// process handles [from, to] batch by batch and returns the last block
// that was stored and checkpointed.
func (w *Watcher) process(ctx context.Context, from, to uint64) (uint64, error) {
	ranges, err := SplitRange(from, to, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	last := from - 1
	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		logs, err := w.filterLogs(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return last, fmt.Errorf("filter logs: %w", err)
		}

		events, err := w.decode(ctx, logs)
		if err != nil {
			return last, err
		}
		if err := w.sink.PutEvents(ctx, events); err != nil {
			return last, fmt.Errorf("store events: %w", err)
		}
		if w.checkpoint != nil {
			if err := w.checkpoint.Save(ctx, blockRange.To); err != nil {
				return last, err
			}
		}
		last = blockRange.To

		w.logger.Info("batch complete", zap.Int("events", len(events)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}
	return last, nil
}

func (w *Watcher) decode(ctx context.Context, logs []types.Log) ([]model.PoolEvent, error) {
	seen := make(map[string]struct{}, len(logs))
	events := make([]model.PoolEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed || !w.decoder.CanDecode(log) {
			continue
		}
		event, err := w.decoder.Decode(log)
		if err != nil {
			w.logger.Warn("decode failed", zap.String("tx", log.TxHash.Hex()), zap.Uint("log_index", log.Index), zap.Error(err))
			continue
		}
		if _, dup := seen[event.Key()]; dup {
			continue
		}
		seen[event.Key()] = struct{}{}

		if w.cfg.Timestamps {
			ts, err := w.blockTimestamp(ctx, log.BlockNumber)
			if err != nil {
				return nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			event.Timestamp = ts
		}

		w.metrics.ObserveEvent(event.Name, event.BlockNumber)
		w.logger.Info("pool event",
			zap.String("event", event.Name),
			zap.Uint64("block", event.BlockNumber),
			zap.String("tx", event.TxHash),
			zap.String("amount0", event.Amount0),
			zap.String("amount1", event.Amount1),
		)
		events = append(events, event)
	}
	return events, nil
}

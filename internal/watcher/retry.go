package watcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// JSON-RPC codes that will fail the same way on every attempt.
const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeLimitExceeded  = -32005
)

// rangeTooLarge reports whether the node refused eth_getLogs because the
// block range or result set is over its limit.
func rangeTooLarge(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeLimitExceeded {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "query returned more than") ||
		strings.Contains(msg, "block range") ||
		strings.Contains(msg, "range is too large")
}

// retryable reports whether another attempt can succeed. Cancellation,
// malformed requests and oversized log ranges are returned at once.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if rangeTooLarge(err) {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeInvalidRequest, codeMethodNotFound, codeInvalidParams:
			return false
		}
	}
	return true
}

// retry runs fn until it succeeds, fails permanently or MaxRetries retries
// are spent. The delay doubles after every failure up to maxBackoff.
func (w *Watcher) retry(ctx context.Context, op string, fn func(context.Context) error, fields ...zap.Field) error {
	maxRetries := max(w.cfg.MaxRetries, 0)
	delay := w.cfg.RetryBackoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt >= maxRetries {
			return err
		}
		w.logger.Warn(op+" failed, retrying",
			append(fields, zap.Int("attempt", attempt+1), zap.Duration("backoff", delay), zap.Error(err))...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxBackoff)
	}
}

func (w *Watcher) latestBlock(ctx context.Context) (uint64, error) {
	var latest uint64
	err := w.retry(ctx, "latest block", func(ctx context.Context) error {
		var err error
		latest, err = w.source.LatestBlockNumber(ctx)
		return err
	})
	return latest, err
}

// filterLogs reads the pool's logs in [from, to]. A range the node refuses
// as too large is halved until it fits or is a single block.
func (w *Watcher) filterLogs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	var logs []types.Log
	err := w.retry(ctx, "filter logs", func(ctx context.Context) error {
		var err error
		logs, err = w.source.FilterLogs(ctx, from, to, []common.Address{w.cfg.Pool}, w.decoder.Topics())
		return err
	}, zap.Uint64("from", from), zap.Uint64("to", to))
	if err == nil || !rangeTooLarge(err) || from == to {
		return logs, err
	}

	left, right := BlockRange{From: from, To: to}.Halve()
	w.logger.Info("log range too large, splitting",
		zap.Uint64("from", from), zap.Uint64("to", to), zap.Uint64("mid", left.To))
	logs, err = w.filterLogs(ctx, left.From, left.To)
	if err != nil {
		return nil, err
	}
	rest, err := w.filterLogs(ctx, right.From, right.To)
	if err != nil {
		return nil, err
	}
	return append(logs, rest...), nil
}

func (w *Watcher) blockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	var ts uint64
	err := w.retry(ctx, "block timestamp", func(ctx context.Context) error {
		var err error
		ts, err = w.source.BlockTimestamp(ctx, number)
		return err
	}, zap.Uint64("block_number", number))
	return ts, err
}

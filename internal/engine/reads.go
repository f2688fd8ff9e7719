package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vaultScope/internal/liquidity"
	"vaultScope/internal/model"
	"vaultScope/internal/tickmath"
)

type poolState struct {
	slot0     model.Slot0
	liquidity *big.Int
	spacing   int
}

func (e *Engine) state(ctx context.Context) (poolState, error) {
	spacing, err := e.spacing(ctx)
	if err != nil {
		return poolState{}, err
	}
	slot0, err := e.slot0(ctx)
	if err != nil {
		return poolState{}, err
	}

	started := time.Now()
	liq, err := e.reader.Liquidity(ctx)
	e.observe("liquidity", started, err)
	if err != nil {
		return poolState{}, fmt.Errorf("%w: liquidity: %w", ErrUpstream, err)
	}
	return poolState{slot0: slot0, liquidity: liq, spacing: spacing}, nil
}

func (e *Engine) slot0(ctx context.Context) (model.Slot0, error) {
	started := time.Now()
	slot0, err := e.reader.Slot0(ctx)
	e.observe("slot0", started, err)
	if err != nil {
		return model.Slot0{}, fmt.Errorf("%w: slot0: %w", ErrUpstream, err)
	}
	return slot0, nil
}

func (e *Engine) meta(ctx context.Context) (model.PoolMeta, error) {
	started := time.Now()
	meta, err := e.reader.Meta(ctx)
	e.observe("meta", started, err)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("%w: pool meta: %w", ErrUpstream, err)
	}
	return meta, nil
}

func (e *Engine) spacing(ctx context.Context) (int, error) {
	if e.cfg.TickSpacing > 0 {
		return e.cfg.TickSpacing, nil
	}
	meta, err := e.meta(ctx)
	if err != nil {
		return 0, err
	}
	if meta.TickSpacing <= 0 {
		return 0, fmt.Errorf("%w: pool reports tick spacing %d", ErrUpstream, meta.TickSpacing)
	}
	return meta.TickSpacing, nil
}

// curve reads the deltas of every grid tick the walk can touch and builds
// the active liquidity curve.
func (e *Engine) curve(ctx context.Context, st poolState, steps int) (liquidity.Curve, error) {
	token0, token1, err := e.Tokens(ctx)
	if err != nil {
		return liquidity.Curve{}, err
	}
	pivot := tickmath.NearestGridTick(st.slot0.Tick, st.spacing, tickmath.Floor)
	infos, err := e.readTicks(ctx, gridAround(pivot, st.spacing, steps))
	if err != nil {
		return liquidity.Curve{}, err
	}

	deltas := make(map[int]liquidity.Delta, len(infos))
	for tick, info := range infos {
		if info.LiquidityNet == nil || info.LiquidityNet.Sign() == 0 {
			continue
		}
		deltas[tick] = liquidity.Delta{
			LiquidityGross: orZero(info.LiquidityGross),
			LiquidityNet:   info.LiquidityNet,
		}
	}

	curve, err := liquidity.BuildCurve(liquidity.Window{
		CurrentTick: st.slot0.Tick,
		Liquidity:   st.liquidity,
		Deltas:      deltas,
		TickSpacing: st.spacing,
		Steps:       steps,
		Decimals0:   token0.Decimals,
		Decimals1:   token1.Decimals,
	})
	if err != nil {
		return liquidity.Curve{}, err
	}
	e.metrics.ObserveCurve(len(curve.Ticks))
	return curve, nil
}

// readTicks fetches tick state concurrently. Any failed read fails the
// whole batch.
func (e *Engine) readTicks(ctx context.Context, ticks []int) (map[int]model.TickInfo, error) {
	out := make(map[int]model.TickInfo, len(ticks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, tick := range ticks {
		tick := tick
		g.Go(func() error {
			started := time.Now()
			info, err := e.reader.Tick(gctx, tick)
			e.observe("ticks", started, err)
			if err != nil {
				return fmt.Errorf("%w: ticks(%d): %w", ErrUpstream, tick, err)
			}
			mu.Lock()
			out[tick] = info
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// gridAround lists the in-bounds grid ticks within steps spacings of pivot.
func gridAround(pivot, spacing, steps int) []int {
	ticks := make([]int, 0, 2*steps+1)
	for i := -steps; i <= steps; i++ {
		tick := pivot + i*spacing
		if tickmath.InBounds(tick) {
			ticks = append(ticks, tick)
		}
	}
	return ticks
}

package liquidity

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"vaultScope/internal/tickmath"
)

var (
	ErrInvalidSpacing   = errors.New("tick spacing must be greater than zero")
	ErrInvalidSteps     = errors.New("steps must not be negative")
	ErrInvalidLiquidity = errors.New("pool liquidity must be a non-negative integer")
)

// Delta is the liquidity bookkeeping of one initialized tick.
type Delta struct {
	LiquidityGross *big.Int
	LiquidityNet   *big.Int
}

// Window is the input of BuildCurve. Deltas only needs entries for
// initialized ticks; missing ticks are treated as uninitialized.
type Window struct {
	CurrentTick int
	Liquidity   *big.Int
	Deltas      map[int]Delta
	TickSpacing int
	Steps       int
	Decimals0   uint8
	Decimals1   uint8
}

// TickProcessed is one grid tick of the active liquidity curve.
type TickProcessed struct {
	TickIdx         int             `json:"tickIdx"`
	LiquidityActive *big.Int        `json:"liquidityActive"`
	LiquidityGross  *big.Int        `json:"liquidityGross"`
	LiquidityNet    *big.Int        `json:"liquidityNet"`
	Price0          decimal.Decimal `json:"price0"`
	Price1          decimal.Decimal `json:"price1"`
}

// Curve is the active liquidity curve in ascending tick order.
type Curve struct {
	Ticks         []TickProcessed `json:"ticks"`
	CurrentTick   int             `json:"currentTick"`
	ActiveTickIdx int             `json:"activeTickIdx"`
	PivotIndex    int             `json:"pivotIndex"`
	TickSpacing   int             `json:"tickSpacing"`
	Decimals0     uint8           `json:"decimals0"`
	Decimals1     uint8           `json:"decimals1"`
}

// Pivot returns the entry at the pool's active tick.
func (c Curve) Pivot() TickProcessed {
	return c.Ticks[c.PivotIndex]
}

// Find returns the entry for tickIdx.
func (c Curve) Find(tickIdx int) (TickProcessed, bool) {
	if len(c.Ticks) == 0 || c.TickSpacing <= 0 {
		return TickProcessed{}, false
	}
	offset := tickIdx - c.Ticks[0].TickIdx
	if offset < 0 || offset%c.TickSpacing != 0 {
		return TickProcessed{}, false
	}
	i := offset / c.TickSpacing
	if i >= len(c.Ticks) {
		return TickProcessed{}, false
	}
	return c.Ticks[i], true
}

// BuildCurve reconstructs active liquidity at every grid tick within Steps
// spacings of the active tick. The walk in each direction stops at the tick
// bounds, so the curve is shorter near the edges of the range.
func BuildCurve(w Window) (Curve, error) {
	if w.TickSpacing <= 0 {
		return Curve{}, ErrInvalidSpacing
	}
	if w.Steps < 0 {
		return Curve{}, ErrInvalidSteps
	}
	if w.Liquidity == nil || w.Liquidity.Sign() < 0 {
		return Curve{}, ErrInvalidLiquidity
	}

	activeTickIdx := tickmath.NearestGridTick(w.CurrentTick, w.TickSpacing, tickmath.Floor)
	if !tickmath.InBounds(activeTickIdx) {
		return Curve{}, fmt.Errorf("active tick %d: %w", activeTickIdx, tickmath.ErrTickOutOfBounds)
	}

	pivot, err := w.newTick(activeTickIdx, w.Liquidity)
	if err != nil {
		return Curve{}, err
	}

	subsequent := make([]TickProcessed, 0, w.Steps)
	previous := pivot
	for i := 0; i < w.Steps; i++ {
		tickIdx := previous.TickIdx + w.TickSpacing
		if !tickmath.InBounds(tickIdx) {
			break
		}
		active := new(big.Int).Set(previous.LiquidityActive)
		if delta, ok := w.Deltas[tickIdx]; ok && delta.LiquidityNet != nil {
			active.Add(active, delta.LiquidityNet)
		}
		current, err := w.newTick(tickIdx, active)
		if err != nil {
			return Curve{}, err
		}
		subsequent = append(subsequent, current)
		previous = current
	}

	preceding := make([]TickProcessed, 0, w.Steps)
	previous = pivot
	for i := 0; i < w.Steps; i++ {
		tickIdx := previous.TickIdx - w.TickSpacing
		if !tickmath.InBounds(tickIdx) {
			break
		}
		// crossing downward undoes the upper tick's net
		active := new(big.Int).Set(previous.LiquidityActive)
		if previous.LiquidityNet.Sign() != 0 {
			active.Sub(active, previous.LiquidityNet)
		}
		current, err := w.newTick(tickIdx, active)
		if err != nil {
			return Curve{}, err
		}
		preceding = append(preceding, current)
		previous = current
	}

	ticks := make([]TickProcessed, 0, len(preceding)+1+len(subsequent))
	for i := len(preceding) - 1; i >= 0; i-- {
		ticks = append(ticks, preceding[i])
	}
	ticks = append(ticks, pivot)
	ticks = append(ticks, subsequent...)

	return Curve{
		Ticks:         ticks,
		CurrentTick:   w.CurrentTick,
		ActiveTickIdx: activeTickIdx,
		PivotIndex:    len(preceding),
		TickSpacing:   w.TickSpacing,
		Decimals0:     w.Decimals0,
		Decimals1:     w.Decimals1,
	}, nil
}

func (w Window) newTick(tickIdx int, active *big.Int) (TickProcessed, error) {
	price0, err := tickmath.Price0AtTick(tickIdx, w.Decimals0, w.Decimals1)
	if err != nil {
		return TickProcessed{}, err
	}
	price1, err := tickmath.Price1AtTick(tickIdx, w.Decimals0, w.Decimals1)
	if err != nil {
		return TickProcessed{}, err
	}

	gross, net := new(big.Int), new(big.Int)
	if delta, ok := w.Deltas[tickIdx]; ok {
		if delta.LiquidityGross != nil {
			gross.Set(delta.LiquidityGross)
		}
		if delta.LiquidityNet != nil {
			net.Set(delta.LiquidityNet)
		}
	}

	return TickProcessed{
		TickIdx:         tickIdx,
		LiquidityActive: active,
		LiquidityGross:  gross,
		LiquidityNet:    net,
		Price0:          price0,
		Price1:          price1,
	}, nil
}

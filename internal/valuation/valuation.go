package valuation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"vaultScope/internal/liquidity"
	"vaultScope/internal/tickmath"
)

var (
	ErrEmptyCurve     = errors.New("liquidity curve is empty")
	ErrTickNotInCurve = errors.New("tick is not part of the valued curve")
)

// TickEntry holds the reserves locked in [TickIdx, TickIdx+spacing).
type TickEntry struct {
	TickIdx         int             `json:"tickIdx"`
	IsCurrent       bool            `json:"isCurrent"`
	LiquidityActive *big.Int        `json:"liquidityActive"`
	Price0          decimal.Decimal `json:"price0"`
	Price1          decimal.Decimal `json:"price1"`
	TVLToken0       decimal.Decimal `json:"tvlToken0"`
	TVLToken1       decimal.Decimal `json:"tvlToken1"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLagged reproduces the shifted valuation of the legacy service: each
// entry takes the value simulated at the next entry's boundary, using the
// next entry's liquidity, and the last entry is dropped.
func WithLagged() Option {
	return func(e *Engine) {
		e.lagged = true
	}
}

// Engine converts active liquidity curves into per-tick reserves.
type Engine struct {
	pricing PricingEngine
	lagged  bool
}

// NewEngine builds an Engine. A nil pricing engine falls back to a fee-less SwapStepEngine.
func NewEngine(pricing PricingEngine, opts ...Option) *Engine {
	if pricing == nil {
		pricing = SwapStepEngine{}
	}
	e := &Engine{pricing: pricing}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lagged reports whether the engine runs in legacy shifted mode.
func (e *Engine) Lagged() bool {
	return e.lagged
}

// ValuateTicks values every entry of the curve in ascending order.
func (e *Engine) ValuateTicks(curve liquidity.Curve) ([]TickEntry, error) {
	if len(curve.Ticks) == 0 {
		return nil, ErrEmptyCurve
	}
	if e.lagged {
		return e.valuateLagged(curve)
	}

	entries := make([]TickEntry, 0, len(curve.Ticks))
	for _, tick := range curve.Ticks {
		upper := tick.TickIdx + curve.TickSpacing
		if upper > tickmath.MaxTick {
			upper = tickmath.MaxTick
		}
		amount1, err := e.sellToken0(tick.LiquidityActive, upper, tick.TickIdx)
		if err != nil {
			return nil, fmt.Errorf("valuate tick %d: %w", tick.TickIdx, err)
		}
		entries = append(entries, newEntry(curve, tick, amount1, tick.Price1))
	}
	return entries, nil
}

func (e *Engine) valuateLagged(curve liquidity.Curve) ([]TickEntry, error) {
	entries := make([]TickEntry, 0, len(curve.Ticks))
	for i := 1; i < len(curve.Ticks); i++ {
		prev, tick := curve.Ticks[i-1], curve.Ticks[i]
		amount1, err := e.sellToken0(tick.LiquidityActive, tick.TickIdx, prev.TickIdx)
		if err != nil {
			return nil, fmt.Errorf("valuate tick %d: %w", tick.TickIdx, err)
		}
		entries = append(entries, newEntry(curve, prev, amount1, tick.Price1))
	}
	return entries, nil
}

// ValuateTick values the curve and returns the entry for tickIdx together
// with a short description of the token locked there.
func (e *Engine) ValuateTick(curve liquidity.Curve, tickIdx int, symbol0, symbol1 string) (TickEntry, string, error) {
	entries, err := e.ValuateTicks(curve)
	if err != nil {
		return TickEntry{}, "", err
	}
	for _, entry := range entries {
		if entry.TickIdx == tickIdx {
			return entry, Describe(entry, curve, symbol0, symbol1), nil
		}
	}
	return TickEntry{}, "", fmt.Errorf("tick %d: %w", tickIdx, ErrTickNotInCurve)
}

// Describe renders "<symbol> Locked: <amount> <symbol>". Ranges above the
// active tick hold token0, the rest token1.
func Describe(entry TickEntry, curve liquidity.Curve, symbol0, symbol1 string) string {
	if entry.TickIdx > curve.ActiveTickIdx {
		amount := entry.TVLToken0.Round(int32(curve.Decimals0))
		return fmt.Sprintf("%s Locked: %s %s", symbol0, amount.String(), symbol0)
	}
	amount := entry.TVLToken1.Round(int32(curve.Decimals1))
	return fmt.Sprintf("%s Locked: %s %s", symbol1, amount.String(), symbol1)
}

// sellToken0 sells the maximum input from fromTick down to toTick.
func (e *Engine) sellToken0(active *big.Int, fromTick, toTick int) (*big.Int, error) {
	sqrtFrom, err := tickmath.SqrtRatioAtTick(fromTick)
	if err != nil {
		return nil, err
	}
	sqrtTo, err := tickmath.SqrtRatioAtTick(toTick)
	if err != nil {
		return nil, err
	}
	return e.pricing.ComputeOutputAmount(active, sqrtFrom, sqrtTo, MaxUint128)
}

func newEntry(curve liquidity.Curve, tick liquidity.TickProcessed, amount1 *big.Int, price1 decimal.Decimal) TickEntry {
	tvl1 := decimal.NewFromBigInt(amount1, -int32(curve.Decimals1))
	return TickEntry{
		TickIdx:         tick.TickIdx,
		IsCurrent:       tick.TickIdx == curve.ActiveTickIdx,
		LiquidityActive: new(big.Int).Set(tick.LiquidityActive),
		Price0:          tick.Price0,
		Price1:          tick.Price1,
		TVLToken0:       tvl1.Mul(price1),
		TVLToken1:       tvl1,
	}
}

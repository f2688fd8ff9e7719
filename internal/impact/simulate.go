package impact

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
	"vaultScope/internal/valuation"
)

var ErrTickNotInWindow = errors.New("tick not found in computed window")

// Status tells a computed result apart from a no-op.
type Status string

const (
	StatusOK   Status = "ok"
	StatusNoop Status = "noop"
)

// Contribution is the share of one bucket's reserves crossed by the move.
type Contribution struct {
	TickIdx   int             `json:"tickIdx"`
	Weight    decimal.Decimal `json:"weight"`
	TVLToken0 decimal.Decimal `json:"tvlToken0"`
	TVLToken1 decimal.Decimal `json:"tvlToken1"`
}

// Result is the outcome of a price impact simulation. TVLToken0 and
// TVLToken1 are signed from the pool's point of view: the bought token is
// negative because it leaves the pool.
type Result struct {
	Status              Status          `json:"status"`
	Message             string          `json:"message,omitempty"`
	CurrentTick         int             `json:"currentTick"`
	ExpectedTick        int             `json:"expectedTick"`
	NearestTick         int             `json:"nearestTick"`
	NearestExpectedTick int             `json:"nearestExpectedTick"`
	Direction           Direction       `json:"direction,omitempty"`
	OneTick             bool            `json:"oneTick"`
	LowerTVL            decimal.Decimal `json:"lowerTVL"`
	UpperTVL            decimal.Decimal `json:"upperTVL"`
	Ticks               []Contribution  `json:"ticks,omitempty"`
	TVLToken0           decimal.Decimal `json:"tvlToken0"`
	TVLToken1           decimal.Decimal `json:"tvlToken1"`
	TokenToBuy          string          `json:"tokenToBuy,omitempty"`
	TokenToSell         string          `json:"tokenToSell,omitempty"`
	AmountToBuy         *big.Int        `json:"amountToBuy,omitempty"`
}

// NoOpResult reports that the pool already sits at the target tick.
func NoOpResult(plan Plan) Result {
	return Result{
		Status:       StatusNoop,
		Message:      MessageAlreadyAtTarget,
		CurrentTick:  plan.CurrentTick,
		ExpectedTick: plan.ExpectedTick,
	}
}

// Simulate sums the reserves crossed by the planned move and sizes the swap.
// entries must cover every bucket between the two boundary buckets.
func Simulate(plan Plan, entries []valuation.TickEntry, token0, token1 model.TokenMeta) (Result, error) {
	if plan.NoOp {
		return NoOpResult(plan), nil
	}

	byTick := make(map[int]valuation.TickEntry, len(entries))
	for _, entry := range entries {
		byTick[entry.TickIdx] = entry
	}

	type share struct {
		tick   int
		weight decimal.Decimal
	}
	lowerBucket, upperBucket := plan.buckets()
	var shares []share
	if plan.OneTick {
		shares = append(shares, share{tick: lowerBucket, weight: plan.LowerTVL})
	} else {
		shares = append(shares, share{tick: lowerBucket, weight: boundaryWeight(plan.LowerTVL)})
		for tick := lowerBucket + plan.TickSpacing; tick < upperBucket; tick += plan.TickSpacing {
			shares = append(shares, share{tick: tick, weight: decimal.NewFromInt(1)})
		}
		shares = append(shares, share{tick: upperBucket, weight: boundaryWeight(plan.UpperTVL)})
	}

	result := Result{
		Status:              StatusOK,
		CurrentTick:         plan.CurrentTick,
		ExpectedTick:        plan.ExpectedTick,
		NearestTick:         plan.NearestTick,
		NearestExpectedTick: plan.NearestExpectedTick,
		Direction:           plan.Direction,
		OneTick:             plan.OneTick,
		LowerTVL:            plan.LowerTVL,
		UpperTVL:            plan.UpperTVL,
		Ticks:               make([]Contribution, 0, len(shares)),
	}

	total0, total1 := decimal.Zero, decimal.Zero
	for _, s := range shares {
		entry, ok := byTick[s.tick]
		if !ok {
			return Result{}, fmt.Errorf("tick %d: %w", s.tick, ErrTickNotInWindow)
		}
		c := Contribution{
			TickIdx:   s.tick,
			Weight:    s.weight,
			TVLToken0: entry.TVLToken0.Mul(s.weight),
			TVLToken1: entry.TVLToken1.Mul(s.weight),
		}
		total0 = total0.Add(c.TVLToken0)
		total1 = total1.Add(c.TVLToken1)
		result.Ticks = append(result.Ticks, c)
	}

	if plan.Direction == Up {
		result.TokenToBuy, result.TokenToSell = token0.Symbol, token1.Symbol
		result.AmountToBuy = toUnits(total0, token0.Decimals)
		result.TVLToken0, result.TVLToken1 = total0.Neg(), total1
	} else {
		result.TokenToBuy, result.TokenToSell = token1.Symbol, token0.Symbol
		result.AmountToBuy = toUnits(total1, token1.Decimals)
		result.TVLToken0, result.TVLToken1 = total0, total1.Neg()
	}
	return result, nil
}

// boundaryWeight counts a boundary bucket whole when its weight is exactly 0 or 1.
func boundaryWeight(w decimal.Decimal) decimal.Decimal {
	if w.IsZero() || w.Equal(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return w
}

// toUnits converts a whole-token amount to smallest units plus one.
func toUnits(amount decimal.Decimal, decimals uint8) *big.Int {
	units := amount.Shift(int32(decimals)).Truncate(0).BigInt()
	return units.Add(units, big.NewInt(1))
}

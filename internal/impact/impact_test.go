package impact

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
	"vaultScope/internal/tickmath"
	"vaultScope/internal/valuation"
)

var (
	weth = model.TokenMeta{Symbol: "WETH", Decimals: 2}
	usdc = model.TokenMeta{Symbol: "USDC", Decimals: 6}
)

// flatEntries gives every grid tick in [from, to] 6 token0 and 12 token1.
func flatEntries(from, to, spacing int) []valuation.TickEntry {
	var entries []valuation.TickEntry
	for tick := from; tick <= to; tick += spacing {
		entries = append(entries, valuation.TickEntry{
			TickIdx:   tick,
			TVLToken0: decimal.NewFromInt(6),
			TVLToken1: decimal.NewFromInt(12),
		})
	}
	return entries
}

func frac(n, d int64) decimal.Decimal {
	return decimal.NewFromInt(n).DivRound(decimal.NewFromInt(d), weightPrecision)
}

func TestPlanAlreadyAtTarget(t *testing.T) {
	plan, err := NewPlan(100, 100, 60)
	require.NoError(t, err)
	assert.True(t, plan.NoOp)

	result, err := Simulate(plan, nil, weth, usdc)
	require.NoError(t, err)
	assert.Equal(t, StatusNoop, result.Status)
	assert.Equal(t, MessageAlreadyAtTarget, result.Message)
	assert.Nil(t, result.AmountToBuy)
	assert.Zero(t, plan.SweepSteps())
}

func TestPlanOutOfBounds(t *testing.T) {
	_, err := NewPlan(0, tickmath.MaxTick+1, 60)
	assert.ErrorIs(t, err, tickmath.ErrTickOutOfBounds)

	_, err = NewPlan(0, tickmath.MinTick-1, 60)
	assert.ErrorIs(t, err, tickmath.ErrTickOutOfBounds)

	_, err = NewPlan(0, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidSpacing)
}

func TestPlanRejectsTicksPastUsableGrid(t *testing.T) {
	maxUsable, minUsable := tickmath.MaxUsableTick(60), tickmath.MinUsableTick(60)
	require.Equal(t, 887220, maxUsable)
	require.Equal(t, -887220, minUsable)

	_, err := NewPlan(887000, maxUsable+1, 60)
	assert.ErrorIs(t, err, tickmath.ErrTickOutOfBounds)

	_, err = NewPlan(-887000, minUsable-1, 60)
	assert.ErrorIs(t, err, tickmath.ErrTickOutOfBounds)

	plan, err := NewPlan(887000, maxUsable, 60)
	require.NoError(t, err)
	assert.Equal(t, maxUsable, plan.NearestExpectedTick)

	plan, err = NewPlan(-887000, minUsable, 60)
	require.NoError(t, err)
	assert.Equal(t, minUsable, plan.NearestExpectedTick)
}

func TestPlanWeightsKeepFullPrecision(t *testing.T) {
	// current 10 -> bucket 0, lower weight 50/60
	plan, err := NewPlan(10, 130, 60)
	require.NoError(t, err)

	want := decimal.RequireFromString("0.8333333333333333333333333333333333333333")
	assert.True(t, plan.LowerTVL.Equal(want), "lower %s", plan.LowerTVL)
	assert.True(t, plan.LowerTVL.Mul(decimal.NewFromInt(60)).Sub(decimal.NewFromInt(50)).Abs().
		LessThan(decimal.New(1, -38)))
}

func TestPlanOneTick(t *testing.T) {
	plan, err := NewPlan(30, 40, 60)
	require.NoError(t, err)
	assert.True(t, plan.OneTick)
	assert.True(t, plan.UpperTVL.IsZero())
	assert.True(t, plan.LowerTVL.Equal(frac(10, 60)), "lower %s", plan.LowerTVL)
	assert.Equal(t, 3, plan.Steps)
	assert.Equal(t, -60, plan.LowTick)
	assert.Equal(t, 60, plan.HighTick())

	result, err := Simulate(plan, flatEntries(-60, 60, 60), weth, usdc)
	require.NoError(t, err)
	require.Len(t, result.Ticks, 1)
	assert.Equal(t, 0, result.Ticks[0].TickIdx)
	assert.True(t, result.Ticks[0].Weight.Equal(frac(10, 60)))

	down, err := NewPlan(40, 30, 60)
	require.NoError(t, err)
	assert.True(t, down.OneTick)
	assert.True(t, down.LowerTVL.Equal(frac(10, 60)))
	assert.Equal(t, Down, down.Direction)
}

func TestSimulateUp(t *testing.T) {
	plan, err := NewPlan(30, 210, 60)
	require.NoError(t, err)
	assert.Equal(t, Up, plan.Direction)
	assert.Equal(t, 0, plan.NearestTick)
	assert.Equal(t, 180, plan.NearestExpectedTick)
	assert.Equal(t, 6, plan.Steps)
	assert.Equal(t, -60, plan.LowTick)
	assert.Equal(t, 240, plan.HighTick())
	assert.Equal(t, 4, plan.SweepSteps())
	assert.True(t, plan.LowerTVL.Equal(frac(1, 2)))
	assert.True(t, plan.UpperTVL.Equal(frac(1, 2)))

	result, err := Simulate(plan, flatEntries(plan.LowTick, plan.HighTick(), 60), weth, usdc)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "WETH", result.TokenToBuy)
	assert.Equal(t, "USDC", result.TokenToSell)
	assert.True(t, result.TVLToken0.Equal(decimal.NewFromInt(-18)), "tvl0 %s", result.TVLToken0)
	assert.True(t, result.TVLToken1.Equal(decimal.NewFromInt(36)), "tvl1 %s", result.TVLToken1)
	assert.Equal(t, 0, result.AmountToBuy.Cmp(big.NewInt(1801)), "amount %s", result.AmountToBuy)

	ticks := make([]int, 0, len(result.Ticks))
	for _, c := range result.Ticks {
		ticks = append(ticks, c.TickIdx)
	}
	assert.Equal(t, []int{0, 60, 120, 180}, ticks)
}

func TestSimulateDown(t *testing.T) {
	plan, err := NewPlan(210, 30, 60)
	require.NoError(t, err)
	assert.Equal(t, Down, plan.Direction)
	assert.True(t, plan.LowerTVL.Equal(frac(1, 2)))
	assert.True(t, plan.UpperTVL.Equal(frac(1, 2)))

	result, err := Simulate(plan, flatEntries(plan.LowTick, plan.HighTick(), 60), weth, usdc)
	require.NoError(t, err)

	assert.Equal(t, "USDC", result.TokenToBuy)
	assert.Equal(t, "WETH", result.TokenToSell)
	assert.True(t, result.TVLToken1.Equal(decimal.NewFromInt(-36)), "tvl1 %s", result.TVLToken1)
	assert.True(t, result.TVLToken0.Equal(decimal.NewFromInt(18)), "tvl0 %s", result.TVLToken0)
	assert.Equal(t, 0, result.AmountToBuy.Cmp(big.NewInt(36_000_001)), "amount %s", result.AmountToBuy)
}

func TestSimulateGridAlignedCountsWholeBuckets(t *testing.T) {
	plan, err := NewPlan(0, 120, 60)
	require.NoError(t, err)
	assert.True(t, plan.LowerTVL.Equal(decimal.NewFromInt(1)))
	assert.True(t, plan.UpperTVL.IsZero())

	result, err := Simulate(plan, flatEntries(plan.LowTick, plan.HighTick(), 60), weth, usdc)
	require.NoError(t, err)
	require.Len(t, result.Ticks, 3)
	for _, c := range result.Ticks {
		assert.True(t, c.Weight.Equal(decimal.NewFromInt(1)), "tick %d", c.TickIdx)
	}
	assert.True(t, result.TVLToken0.Equal(decimal.NewFromInt(-18)))
}

func TestPlanNegativeTicks(t *testing.T) {
	plan, err := NewPlan(-30, -100, 60)
	require.NoError(t, err)
	assert.Equal(t, -60, plan.NearestTick)
	assert.Equal(t, -120, plan.NearestExpectedTick)
	assert.Equal(t, 4, plan.Steps)
	assert.Equal(t, -180, plan.LowTick)
	assert.True(t, plan.LowerTVL.Equal(frac(40, 60)))
	assert.True(t, plan.UpperTVL.Equal(frac(30, 60)))
}

func TestSimulateMissingTick(t *testing.T) {
	plan, err := NewPlan(30, 210, 60)
	require.NoError(t, err)

	_, err = Simulate(plan, flatEntries(-60, 60, 60), weth, usdc)
	assert.ErrorIs(t, err, ErrTickNotInWindow)
}

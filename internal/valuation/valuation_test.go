package valuation

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/liquidity"
)

type pricingCall struct {
	liquidity int64
	from, to  *big.Int
}

// echoEngine returns the liquidity it was given as output amount.
type echoEngine struct {
	calls []pricingCall
}

func (e *echoEngine) ComputeOutputAmount(liq, current, limit, _ *big.Int) (*big.Int, error) {
	e.calls = append(e.calls, pricingCall{liquidity: liq.Int64(), from: current, to: limit})
	return new(big.Int).Set(liq), nil
}

func buildCurve(t *testing.T, deltas map[int]liquidity.Delta, decimals uint8) liquidity.Curve {
	t.Helper()
	curve, err := liquidity.BuildCurve(liquidity.Window{
		CurrentTick: 0,
		Liquidity:   big.NewInt(10),
		Deltas:      deltas,
		TickSpacing: 60,
		Steps:       2,
		Decimals0:   decimals,
		Decimals1:   decimals,
	})
	require.NoError(t, err)
	return curve
}

func bumpAt60() map[int]liquidity.Delta {
	return map[int]liquidity.Delta{
		60:  {LiquidityGross: big.NewInt(5), LiquidityNet: big.NewInt(5)},
		120: {LiquidityGross: big.NewInt(5), LiquidityNet: big.NewInt(-5)},
	}
}

func TestValuateTicksSinglePass(t *testing.T) {
	curve := buildCurve(t, bumpAt60(), 0)
	pricing := &echoEngine{}

	entries, err := NewEngine(pricing).ValuateTicks(curve)
	require.NoError(t, err)
	require.Len(t, entries, len(curve.Ticks))

	want := map[int]int64{-120: 10, -60: 10, 0: 10, 60: 15, 120: 10}
	for i, entry := range entries {
		tick := curve.Ticks[i]
		assert.Equal(t, tick.TickIdx, entry.TickIdx)
		assert.True(t, entry.TVLToken1.Equal(decimal.NewFromInt(want[entry.TickIdx])), "tick %d tvl1 %s", entry.TickIdx, entry.TVLToken1)
		assert.True(t, entry.TVLToken0.Equal(entry.TVLToken1.Mul(tick.Price1)), "tick %d", entry.TickIdx)
		assert.Equal(t, entry.TickIdx == 0, entry.IsCurrent)

		call := pricing.calls[i]
		assert.Equal(t, 0, call.from.Cmp(sqrtAt(t, tick.TickIdx+60)))
		assert.Equal(t, 0, call.to.Cmp(sqrtAt(t, tick.TickIdx)))
	}
}

func TestValuateTicksLagged(t *testing.T) {
	curve := buildCurve(t, bumpAt60(), 0)
	pricing := &echoEngine{}

	engine := NewEngine(pricing, WithLagged())
	require.True(t, engine.Lagged())

	entries, err := engine.ValuateTicks(curve)
	require.NoError(t, err)
	require.Len(t, entries, len(curve.Ticks)-1)

	want := map[int]int64{-120: 10, -60: 10, 0: 15, 60: 10}
	for i, entry := range entries {
		assert.Equal(t, curve.Ticks[i].TickIdx, entry.TickIdx)
		assert.True(t, entry.TVLToken1.Equal(decimal.NewFromInt(want[entry.TickIdx])), "tick %d tvl1 %s", entry.TickIdx, entry.TVLToken1)
		assert.True(t, entry.TVLToken0.Equal(entry.TVLToken1.Mul(curve.Ticks[i+1].Price1)))

		call := pricing.calls[i]
		assert.Equal(t, 0, call.from.Cmp(sqrtAt(t, curve.Ticks[i+1].TickIdx)))
		assert.Equal(t, 0, call.to.Cmp(sqrtAt(t, curve.Ticks[i].TickIdx)))
	}
	assert.NotEqual(t, 120, entries[len(entries)-1].TickIdx)
}

func TestValuateTicksDeterministic(t *testing.T) {
	base, _ := new(big.Int).SetString("1000000000000000000", 10)
	curve, err := liquidity.BuildCurve(liquidity.Window{
		CurrentTick: 0,
		Liquidity:   base,
		Deltas: map[int]liquidity.Delta{
			60:  {LiquidityGross: big.NewInt(3_000_000_000), LiquidityNet: big.NewInt(3_000_000_000)},
			180: {LiquidityGross: big.NewInt(3_000_000_000), LiquidityNet: big.NewInt(-3_000_000_000)},
		},
		TickSpacing: 60,
		Steps:       3,
		Decimals0:   18,
		Decimals1:   18,
	})
	require.NoError(t, err)
	engine := NewEngine(SwapStepEngine{FeePips: 3000})

	first, err := engine.ValuateTicks(curve)
	require.NoError(t, err)
	second, err := engine.ValuateTicks(curve)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, entry := range first {
		assert.True(t, entry.TVLToken1.IsPositive(), "tick %d", entry.TickIdx)
	}
}

func TestValuateTickDescription(t *testing.T) {
	curve, err := liquidity.BuildCurve(liquidity.Window{
		CurrentTick: 0,
		Liquidity:   big.NewInt(1000),
		TickSpacing: 60,
		Steps:       1,
	})
	require.NoError(t, err)
	engine := NewEngine(&echoEngine{})

	_, desc, err := engine.ValuateTick(curve, 60, "ETH", "USDC")
	require.NoError(t, err)
	assert.Equal(t, "ETH Locked: 994 ETH", desc)

	entry, desc, err := engine.ValuateTick(curve, 0, "ETH", "USDC")
	require.NoError(t, err)
	assert.Equal(t, "USDC Locked: 1000 USDC", desc)
	assert.True(t, entry.IsCurrent)

	_, _, err = engine.ValuateTick(curve, 600, "ETH", "USDC")
	assert.ErrorIs(t, err, ErrTickNotInCurve)
}

func TestValuateTicksEmptyCurve(t *testing.T) {
	_, err := NewEngine(nil).ValuateTicks(liquidity.Curve{})
	assert.ErrorIs(t, err, ErrEmptyCurve)
}

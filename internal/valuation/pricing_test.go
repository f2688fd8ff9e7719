package valuation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/tickmath"
)

func sqrtAt(t *testing.T, tick int) *big.Int {
	t.Helper()
	ratio, err := tickmath.SqrtRatioAtTick(tick)
	require.NoError(t, err)
	return ratio
}

func TestSwapStepEngineDrainsRangeToToken1(t *testing.T) {
	liq, _ := new(big.Int).SetString("1000000000000000000", 10)
	lower, upper := sqrtAt(t, 0), sqrtAt(t, 60)

	out, err := SwapStepEngine{FeePips: 3000}.ComputeOutputAmount(liq, upper, lower, MaxUint128)
	require.NoError(t, err)

	want := new(big.Int).Sub(upper, lower)
	want.Mul(want, liq)
	want.Quo(want, q96)
	assert.Equal(t, 0, out.Cmp(want), "got %s want %s", out, want)
}

func TestSwapStepEngineDrainsRangeToToken0(t *testing.T) {
	liq, _ := new(big.Int).SetString("1000000000000000000", 10)
	lower, upper := sqrtAt(t, -60), sqrtAt(t, 0)

	out, err := SwapStepEngine{FeePips: 500}.ComputeOutputAmount(liq, lower, upper, MaxUint128)
	require.NoError(t, err)

	want := new(big.Int).Lsh(liq, 96)
	want.Mul(want, new(big.Int).Sub(upper, lower))
	want.Quo(want, upper)
	want.Quo(want, lower)
	assert.Equal(t, 0, out.Cmp(want), "got %s want %s", out, want)
}

func TestSwapStepEngineLimitedInput(t *testing.T) {
	liq, _ := new(big.Int).SetString("1000000000000000000", 10)
	current, limit := sqrtAt(t, 0), sqrtAt(t, -60)
	engine := SwapStepEngine{FeePips: 3000}

	full, err := engine.ComputeOutputAmount(liq, current, limit, MaxUint128)
	require.NoError(t, err)
	partial, err := engine.ComputeOutputAmount(liq, current, limit, big.NewInt(1000))
	require.NoError(t, err)

	assert.Equal(t, 1, partial.Sign())
	assert.Equal(t, -1, partial.Cmp(full))
	assert.LessOrEqual(t, partial.Int64(), int64(997))
}

func TestSwapStepEngineDegenerateInputs(t *testing.T) {
	engine := SwapStepEngine{FeePips: 3000}
	current, limit := sqrtAt(t, 0), sqrtAt(t, -60)

	out, err := engine.ComputeOutputAmount(big.NewInt(0), current, limit, MaxUint128)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Sign())

	out, err = engine.ComputeOutputAmount(big.NewInt(10), current, current, MaxUint128)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Sign())

	_, err = engine.ComputeOutputAmount(big.NewInt(10), nil, limit, MaxUint128)
	assert.ErrorIs(t, err, ErrInvalidSqrtPrice)

	_, err = SwapStepEngine{FeePips: 1_000_000}.ComputeOutputAmount(big.NewInt(10), current, limit, MaxUint128)
	assert.ErrorIs(t, err, ErrInvalidFee)
}

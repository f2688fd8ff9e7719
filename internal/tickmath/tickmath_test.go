package tickmath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqrtRatioAtTickBounds(t *testing.T) {
	minRatio, err := SqrtRatioAtTick(MinTick)
	require.NoError(t, err)
	assert.Equal(t, 0, minRatio.Cmp(MinSqrtRatio), "min tick: got %s", minRatio)

	maxRatio, err := SqrtRatioAtTick(MaxTick)
	require.NoError(t, err)
	assert.Equal(t, 0, maxRatio.Cmp(MaxSqrtRatio), "max tick: got %s", maxRatio)

	_, err = SqrtRatioAtTick(MinTick - 1)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)
	_, err = SqrtRatioAtTick(MaxTick + 1)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)
}

func TestSqrtRatioAtTickZero(t *testing.T) {
	ratio, err := SqrtRatioAtTick(0)
	require.NoError(t, err)
	assert.Equal(t, 0, ratio.Cmp(new(big.Int).Lsh(big.NewInt(1), 96)))
}

func TestSqrtRatioMonotonic(t *testing.T) {
	prev, err := SqrtRatioAtTick(-1000)
	require.NoError(t, err)
	for tick := -999; tick <= 1000; tick += 37 {
		next, err := SqrtRatioAtTick(tick)
		require.NoError(t, err)
		require.Equal(t, 1, next.Cmp(prev), "tick %d", tick)
		prev = next
	}
}

func TestTickAtSqrtRatio(t *testing.T) {
	tick, err := TickAtSqrtRatio(MinSqrtRatio)
	require.NoError(t, err)
	assert.Equal(t, MinTick, tick)

	tick, err = TickAtSqrtRatio(new(big.Int).Sub(MaxSqrtRatio, big.NewInt(1)))
	require.NoError(t, err)
	assert.Equal(t, MaxTick-1, tick)

	_, err = TickAtSqrtRatio(MaxSqrtRatio)
	assert.ErrorIs(t, err, ErrSqrtPriceOutOfBounds)
	_, err = TickAtSqrtRatio(new(big.Int).Sub(MinSqrtRatio, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrSqrtPriceOutOfBounds)

	for _, want := range []int{-887000, -50000, -61, -1, 0, 1, 60, 12345, 600000} {
		ratio, err := SqrtRatioAtTick(want)
		require.NoError(t, err)
		got, err := TickAtSqrtRatio(ratio)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCheckTick(t *testing.T) {
	assert.NoError(t, CheckTick(MinTick))
	assert.NoError(t, CheckTick(MaxTick))
	assert.ErrorIs(t, CheckTick(MaxTick+1), ErrTickOutOfBounds)
	assert.ErrorIs(t, CheckTick(MinTick-1), ErrTickOutOfBounds)
	assert.False(t, InBounds(MaxTick+1))
}

package tickmath

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceFromTickZero(t *testing.T) {
	price, err := PriceFromTick(0, 18, 18)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(1)), "got %s", price)

	price, err = PriceFromTick(0, 18, 6)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.New(1, 12)), "got %s", price)
}

func TestPriceFromTickDecreasing(t *testing.T) {
	low, err := PriceFromTick(-600, 18, 18)
	require.NoError(t, err)
	high, err := PriceFromTick(600, 18, 18)
	require.NoError(t, err)
	assert.True(t, low.GreaterThan(high))
}

func TestPrice1MatchesQuoteWhenDecimalsEqual(t *testing.T) {
	for _, tick := range []int{-20000, -60, 0, 60, 20000} {
		quote, err := PriceFromTick(tick, 18, 18)
		require.NoError(t, err)
		price1, err := Price1AtTick(tick, 18, 18)
		require.NoError(t, err)
		assert.True(t, quote.Equal(price1), "tick %d", tick)
	}
}

func TestPrice0AtTick(t *testing.T) {
	price, err := Price0AtTick(0, 18, 6)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.New(1, 12)), "got %s", price)

	p0, err := Price0AtTick(6000, 18, 18)
	require.NoError(t, err)
	p1, err := Price1AtTick(6000, 18, 18)
	require.NoError(t, err)
	product := p0.Mul(p1)
	assert.True(t, product.Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.New(1, -30)), "product %s", product)
}

func TestTickFromPriceRoundTrip(t *testing.T) {
	decimalPairs := [][2]uint8{{18, 18}, {18, 6}, {6, 18}}
	ticks := []int{-887220, -120000, -61, -60, 0, 60, 1200, 200000, 887220}
	for _, pair := range decimalPairs {
		for _, raw := range ticks {
			tick := NearestGridTick(raw, 60, Floor)
			price, err := PriceFromTick(tick, pair[0], pair[1])
			require.NoError(t, err)
			got, err := TickFromPrice(price, pair[0], pair[1])
			require.NoError(t, err)
			assert.Equal(t, tick, got, "decimals %v tick %d price %s", pair, tick, price)
		}
	}
}

func TestTickFromPriceNearest(t *testing.T) {
	got, err := TickFromPrice(decimal.NewFromInt(1), 18, 18)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	// just below the geometric midpoint between tick 0 and tick -1
	got, err = TickFromPrice(decimal.RequireFromString("1.00004"), 18, 18)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = TickFromPrice(decimal.RequireFromString("1.00006"), 18, 18)
	require.NoError(t, err)
	assert.Equal(t, -1, got)
}

func TestTickFromPriceInvalid(t *testing.T) {
	_, err := TickFromPrice(decimal.Zero, 18, 18)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = TickFromPrice(decimal.NewFromInt(-3), 18, 18)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = TickFromPrice(decimal.New(1, 60), 18, 18)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)
}

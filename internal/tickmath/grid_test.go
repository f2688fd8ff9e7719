package tickmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestGridTick(t *testing.T) {
	cases := []struct {
		tick    int
		spacing int
		mode    Rounding
		want    int
	}{
		{tick: 0, spacing: 60, mode: Floor, want: 0},
		{tick: 59, spacing: 60, mode: Floor, want: 0},
		{tick: 60, spacing: 60, mode: Floor, want: 60},
		{tick: -1, spacing: 60, mode: Floor, want: -60},
		{tick: -60, spacing: 60, mode: Floor, want: -60},
		{tick: -61, spacing: 60, mode: Floor, want: -120},
		{tick: 1, spacing: 60, mode: Ceil, want: 60},
		{tick: 60, spacing: 60, mode: Ceil, want: 60},
		{tick: -1, spacing: 60, mode: Ceil, want: 0},
		{tick: -61, spacing: 60, mode: Ceil, want: -60},
		{tick: 7, spacing: 0, mode: Floor, want: 7},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NearestGridTick(tc.tick, tc.spacing, tc.mode), "tick=%d spacing=%d mode=%d", tc.tick, tc.spacing, tc.mode)
	}
}

func TestUsableTicks(t *testing.T) {
	assert.Equal(t, 887220, MaxUsableTick(60))
	assert.Equal(t, -887220, MinUsableTick(60))
	assert.Equal(t, 887270, MaxUsableTick(10))
	assert.Equal(t, -887200, MinUsableTick(200))
}

func TestTickSpacingForFee(t *testing.T) {
	for fee, want := range map[uint32]int{500: 10, 3000: 60, 10000: 200} {
		got, err := TickSpacingForFee(fee)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := TickSpacingForFee(2500)
	assert.Error(t, err)
}

package tickmath

import "fmt"

// Rounding selects how a tick snaps to the spacing grid.
type Rounding int

const (
	Floor Rounding = iota
	Ceil
)

// Fee tiers in hundredths of a bip.
const (
	FeeLow    uint32 = 500
	FeeMedium uint32 = 3000
	FeeHigh   uint32 = 10000
)

// NearestGridTick snaps tick to a multiple of spacing. Floor rounds toward
// negative infinity, Ceil toward positive infinity. A non-positive spacing
// leaves tick unchanged.
func NearestGridTick(tick, spacing int, mode Rounding) int {
	if spacing <= 0 {
		return tick
	}
	q := tick / spacing
	r := tick % spacing
	switch mode {
	case Ceil:
		if r > 0 {
			q++
		}
	default:
		if r < 0 {
			q--
		}
	}
	return q * spacing
}

// MinUsableTick is the lowest grid tick inside the valid range.
func MinUsableTick(spacing int) int {
	return NearestGridTick(MinTick, spacing, Ceil)
}

// MaxUsableTick is the highest grid tick inside the valid range.
func MaxUsableTick(spacing int) int {
	return NearestGridTick(MaxTick, spacing, Floor)
}

// TickSpacingForFee maps a fee tier to its tick spacing.
func TickSpacingForFee(fee uint32) (int, error) {
	switch fee {
	case FeeLow:
		return 10, nil
	case FeeMedium:
		return 60, nil
	case FeeHigh:
		return 200, nil
	default:
		return 0, fmt.Errorf("unsupported fee tier: %d", fee)
	}
}

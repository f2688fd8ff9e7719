package impact

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"vaultScope/internal/tickmath"
)

const (
	MessageAlreadyAtTarget = "ExpectedTick is equal to currentTick"
	MessageOutOfBounds     = "Given tick is out of bounds"
)

// weightPrecision is the number of decimal places kept in boundary weights.
const weightPrecision = 40

var ErrInvalidSpacing = errors.New("tick spacing must be greater than zero")

// Direction is the way the pool price has to move.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Plan is the validated geometry of a price move: the buckets that hold the
// current and target ticks, the window that must be valued, and how much of
// each boundary bucket is crossed.
type Plan struct {
	CurrentTick         int
	ExpectedTick        int
	TickSpacing         int
	NoOp                bool
	Direction           Direction
	NearestTick         int
	NearestExpectedTick int
	LowTick             int
	Steps               int
	OneTick             bool
	LowerTVL            decimal.Decimal
	UpperTVL            decimal.Decimal
}

// NewPlan validates the move from currentTick to expectedTick. A target equal
// to the current tick yields a NoOp plan; a target outside the pool's usable
// grid range fails with tickmath.ErrTickOutOfBounds.
func NewPlan(currentTick, expectedTick, spacing int) (Plan, error) {
	if spacing <= 0 {
		return Plan{}, ErrInvalidSpacing
	}

	plan := Plan{
		CurrentTick:  currentTick,
		ExpectedTick: expectedTick,
		TickSpacing:  spacing,
	}
	if expectedTick == currentTick {
		plan.NoOp = true
		return plan, nil
	}
	if err := checkUsable(expectedTick, spacing); err != nil {
		return Plan{}, err
	}

	plan.NearestTick = tickmath.NearestGridTick(currentTick, spacing, tickmath.Floor)
	plan.NearestExpectedTick = tickmath.NearestGridTick(expectedTick, spacing, tickmath.Floor)

	low, high := plan.NearestTick, plan.NearestExpectedTick
	if low > high {
		low, high = high, low
	}
	plan.LowTick = low - spacing
	plan.Steps = (high-low)/spacing + 3

	s := decimal.NewFromInt(int64(spacing))
	fraction := func(n int) decimal.Decimal {
		return decimal.NewFromInt(int64(n)).DivRound(s, weightPrecision)
	}

	if expectedTick > currentTick {
		plan.Direction = Up
	} else {
		plan.Direction = Down
	}

	if plan.NearestTick == plan.NearestExpectedTick {
		plan.OneTick = true
		plan.UpperTVL = decimal.Zero
		plan.LowerTVL = fraction(abs(expectedTick - currentTick))
		return plan, nil
	}

	if plan.Direction == Up {
		plan.LowerTVL = fraction(plan.NearestTick + spacing - currentTick)
		plan.UpperTVL = fraction(expectedTick - plan.NearestExpectedTick)
	} else {
		plan.LowerTVL = fraction(plan.NearestExpectedTick + spacing - expectedTick)
		plan.UpperTVL = fraction(currentTick - plan.NearestTick)
	}
	return plan, nil
}

// checkUsable rejects ticks outside [MinUsableTick, MaxUsableTick] for spacing.
func checkUsable(tick, spacing int) error {
	lo, hi := tickmath.MinUsableTick(spacing), tickmath.MaxUsableTick(spacing)
	if tick < lo || tick > hi {
		return fmt.Errorf("tick %d outside [%d, %d]: %w", tick, lo, hi, tickmath.ErrTickOutOfBounds)
	}
	return nil
}

// HighTick is the last grid tick of the window.
func (p Plan) HighTick() int {
	return p.LowTick + (p.Steps-1)*p.TickSpacing
}

// SweepSteps is the curve width, in spacings around NearestTick, that covers
// the whole window.
func (p Plan) SweepSteps() int {
	if p.NoOp {
		return 0
	}
	return abs(p.NearestExpectedTick-p.NearestTick)/p.TickSpacing + 1
}

// buckets returns the lower and upper partially crossed buckets.
func (p Plan) buckets() (int, int) {
	if p.Direction == Up {
		return p.NearestTick, p.NearestExpectedTick
	}
	return p.NearestExpectedTick, p.NearestTick
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package tickmath

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// significant digits kept when a ratio is rendered as a decimal
const priceDigits = 40

var (
	q192 = new(big.Int).Lsh(big.NewInt(1), 192)

	ErrInvalidPrice = errors.New("price must be positive")
)

// PriceFromTick returns (1 / 1.0001^tick) * 10^(decimals0 - decimals1).
// This is the quote convention used when a caller targets a price instead of a tick.
func PriceFromTick(tick int, decimals0, decimals1 uint8) (decimal.Decimal, error) {
	sqrt, err := SqrtRatioAtTick(tick)
	if err != nil {
		return decimal.Decimal{}, err
	}
	num := new(big.Int).Set(q192)
	den := new(big.Int).Mul(sqrt, sqrt)
	scaleByPow10(num, den, int(decimals0)-int(decimals1))
	return ratioToDecimal(num, den), nil
}

// TickFromPrice is the inverse of PriceFromTick. It returns the tick whose price is
// geometrically nearest to price.
func TickFromPrice(price decimal.Decimal, decimals0, decimals1 uint8) (int, error) {
	if price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}

	// 1.0001^tick = 10^(d0-d1) / price, with price = coef * 10^exp
	coef := price.Coefficient()
	num := big.NewInt(1)
	den := new(big.Int).Set(coef)
	scaleByPow10(num, den, int(decimals0)-int(decimals1)-int(price.Exponent()))

	return tickAtRatio(num, den)
}

// Price0AtTick returns the price of one whole token0 in token1.
func Price0AtTick(tick int, decimals0, decimals1 uint8) (decimal.Decimal, error) {
	sqrt, err := SqrtRatioAtTick(tick)
	if err != nil {
		return decimal.Decimal{}, err
	}
	num := new(big.Int).Mul(sqrt, sqrt)
	den := new(big.Int).Set(q192)
	scaleByPow10(num, den, int(decimals0)-int(decimals1))
	return ratioToDecimal(num, den), nil
}

// Price1AtTick returns the price of one whole token1 in token0.
func Price1AtTick(tick int, decimals0, decimals1 uint8) (decimal.Decimal, error) {
	sqrt, err := SqrtRatioAtTick(tick)
	if err != nil {
		return decimal.Decimal{}, err
	}
	num := new(big.Int).Set(q192)
	den := new(big.Int).Mul(sqrt, sqrt)
	scaleByPow10(num, den, int(decimals1)-int(decimals0))
	return ratioToDecimal(num, den), nil
}

// tickAtRatio maps a raw token1/token0 ratio num/den to its nearest tick.
func tickAtRatio(num, den *big.Int) (int, error) {
	shifted := new(big.Int).Lsh(num, 192)
	sqrt := new(big.Int).Quo(shifted, den)
	sqrt.Sqrt(sqrt)
	if sqrt.Cmp(MinSqrtRatio) < 0 || sqrt.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrTickOutOfBounds
	}

	tick, err := TickAtSqrtRatio(sqrt)
	if err != nil {
		return 0, err
	}
	if tick == MaxTick {
		return tick, nil
	}

	lower, err := SqrtRatioAtTick(tick)
	if err != nil {
		return 0, err
	}
	upper, err := SqrtRatioAtTick(tick + 1)
	if err != nil {
		return 0, err
	}

	// ratio >= sqrt(ratio(t) * ratio(t+1)) rounds up
	midpoint := new(big.Int).Mul(lower, upper)
	midpoint.Mul(midpoint, den)
	if shifted.Cmp(midpoint) >= 0 {
		tick++
	}
	return tick, nil
}

func scaleByPow10(num, den *big.Int, exp int) {
	if exp > 0 {
		num.Mul(num, pow10(exp))
	} else if exp < 0 {
		den.Mul(den, pow10(-exp))
	}
}

func ratioToDecimal(num, den *big.Int) decimal.Decimal {
	scale := priceDigits - (len(num.String()) - len(den.String()))
	q := new(big.Int)
	if scale >= 0 {
		q.Mul(num, pow10(scale))
		q.Quo(q, den)
	} else {
		q.Quo(num, new(big.Int).Mul(den, pow10(-scale)))
	}
	return decimal.NewFromBigInt(q, int32(-scale))
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

package valuation

import (
	"errors"
	"math/big"
)

const feeDenominator = 1_000_000

var (
	q96 = new(big.Int).Lsh(big.NewInt(1), 96)

	// MaxUint128 is the largest amount a pool accepts as swap input.
	MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	ErrInvalidSqrtPrice = errors.New("sqrt price must be positive")
	ErrInvalidFee       = errors.New("fee must be below 1e6 pips")
)

// PricingEngine prices a swap confined to a single liquidity range. It returns
// the output amount when up to maxInput is sold from sqrtPriceCurrentX96
// toward sqrtPriceLimitX96. Selling token0 moves the price down, so a limit
// below the current price yields token1 and a limit above yields token0.
type PricingEngine interface {
	ComputeOutputAmount(liquidity, sqrtPriceCurrentX96, sqrtPriceLimitX96, maxInput *big.Int) (*big.Int, error)
}

// SwapStepEngine is the exact-input swap step of a V3 pool.
type SwapStepEngine struct {
	FeePips uint32
}

// ComputeOutputAmount implements PricingEngine.
func (e SwapStepEngine) ComputeOutputAmount(liquidity, sqrtPriceCurrentX96, sqrtPriceLimitX96, maxInput *big.Int) (*big.Int, error) {
	if e.FeePips >= feeDenominator {
		return nil, ErrInvalidFee
	}
	if sqrtPriceCurrentX96 == nil || sqrtPriceLimitX96 == nil || sqrtPriceCurrentX96.Sign() <= 0 || sqrtPriceLimitX96.Sign() <= 0 {
		return nil, ErrInvalidSqrtPrice
	}
	if liquidity == nil || liquidity.Sign() <= 0 || maxInput == nil || maxInput.Sign() <= 0 {
		return new(big.Int), nil
	}
	if sqrtPriceCurrentX96.Cmp(sqrtPriceLimitX96) == 0 {
		return new(big.Int), nil
	}

	zeroForOne := sqrtPriceCurrentX96.Cmp(sqrtPriceLimitX96) > 0

	remainingLessFee := new(big.Int).Mul(maxInput, big.NewInt(int64(feeDenominator-e.FeePips)))
	remainingLessFee.Quo(remainingLessFee, big.NewInt(feeDenominator))

	var amountIn *big.Int
	if zeroForOne {
		amountIn = amount0Delta(sqrtPriceLimitX96, sqrtPriceCurrentX96, liquidity, true)
	} else {
		amountIn = amount1Delta(sqrtPriceCurrentX96, sqrtPriceLimitX96, liquidity, true)
	}

	next := sqrtPriceLimitX96
	if remainingLessFee.Cmp(amountIn) < 0 {
		next = nextSqrtPriceFromInput(sqrtPriceCurrentX96, liquidity, remainingLessFee, zeroForOne)
	}

	if zeroForOne {
		return amount1Delta(next, sqrtPriceCurrentX96, liquidity, false), nil
	}
	return amount0Delta(sqrtPriceCurrentX96, next, liquidity, false), nil
}

// amount0Delta is liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func amount0Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		return divRoundingUp(mulDivRoundingUp(numerator1, numerator2, sqrtB), sqrtA)
	}
	out := new(big.Int).Mul(numerator1, numerator2)
	out.Quo(out, sqrtB)
	return out.Quo(out, sqrtA)
}

// amount1Delta is liquidity * (sqrtB - sqrtA) / 2^96.
func amount1Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, q96)
	}
	out := new(big.Int).Mul(liquidity, diff)
	return out.Quo(out, q96)
}

func nextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *big.Int, zeroForOne bool) *big.Int {
	if amountIn.Sign() == 0 {
		return new(big.Int).Set(sqrtPX96)
	}
	if zeroForOne {
		// liquidity * sqrtP / (liquidity + amount * sqrtP), rounded up
		numerator1 := new(big.Int).Lsh(liquidity, 96)
		denominator := new(big.Int).Mul(amountIn, sqrtPX96)
		denominator.Add(denominator, numerator1)
		return mulDivRoundingUp(numerator1, sqrtPX96, denominator)
	}
	quotient := new(big.Int).Lsh(amountIn, 96)
	quotient.Quo(quotient, liquidity)
	return quotient.Add(quotient, sqrtPX96)
}

func mulDivRoundingUp(a, b, denominator *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return divRoundingUp(product, denominator)
}

func divRoundingUp(a, denominator *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, denominator, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

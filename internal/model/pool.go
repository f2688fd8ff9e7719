package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PoolMeta holds the immutable parameters of a pool.
type PoolMeta struct {
	Address     string `json:"address"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int    `json:"tickSpacing"`
}

// Slot0 mirrors the pool's slot0 getter.
type Slot0 struct {
	SqrtPriceX96               *big.Int `json:"sqrtPriceX96"`
	Tick                       int      `json:"tick"`
	ObservationIndex           uint16   `json:"observationIndex"`
	ObservationCardinality     uint16   `json:"observationCardinality"`
	ObservationCardinalityNext uint16   `json:"observationCardinalityNext"`
	FeeProtocol                uint8    `json:"feeProtocol"`
	Unlocked                   bool     `json:"unlocked"`
}

// TickInfo mirrors the pool's ticks(int24) getter.
type TickInfo struct {
	LiquidityGross                 *big.Int `json:"liquidityGross"`
	LiquidityNet                   *big.Int `json:"liquidityNet"`
	FeeGrowthOutside0X128          *big.Int `json:"feeGrowthOutside0X128"`
	FeeGrowthOutside1X128          *big.Int `json:"feeGrowthOutside1X128"`
	TickCumulativeOutside          int64    `json:"tickCumulativeOutside"`
	SecondsPerLiquidityOutsideX128 *big.Int `json:"secondsPerLiquidityOutsideX128"`
	SecondsOutside                 uint32   `json:"secondsOutside"`
	Initialized                    bool     `json:"initialized"`
}

// TickData is a raw per-tick record joined with its price.
type TickData struct {
	Tick           int             `json:"tick"`
	Price0         decimal.Decimal `json:"price0"`
	Price1         decimal.Decimal `json:"price1"`
	Initialized    bool            `json:"initialized"`
	LiquidityGross *big.Int        `json:"liquidityGross"`
	LiquidityNet   *big.Int        `json:"liquidityNet"`
}

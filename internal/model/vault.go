package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// VaultState is the configuration and supply of a liquidity vault that
// manages a base and a limit position in one pool.
type VaultState struct {
	Address              string   `json:"address"`
	Pool                 string   `json:"pool"`
	Token0               string   `json:"token0"`
	Token1               string   `json:"token1"`
	BaseLower            int      `json:"baseLower"`
	BaseUpper            int      `json:"baseUpper"`
	LimitLower           int      `json:"limitLower"`
	LimitUpper           int      `json:"limitUpper"`
	TotalSupply          *big.Int `json:"totalSupply"`
	MaxTotalSupply       *big.Int `json:"maxTotalSupply"`
	ProtocolFee          *big.Int `json:"protocolFee"`
	AccruedProtocolFees0 *big.Int `json:"accruedProtocolFees0"`
	AccruedProtocolFees1 *big.Int `json:"accruedProtocolFees1"`
}

// TokenAmounts is a raw token0/token1 pair in smallest units.
type TokenAmounts struct {
	Amount0 *big.Int `json:"amount0"`
	Amount1 *big.Int `json:"amount1"`
}

// VaultAmounts pairs raw amounts with their whole-token values.
type VaultAmounts struct {
	Raw     TokenAmounts    `json:"raw"`
	Token0  string          `json:"token0"`
	Token1  string          `json:"token1"`
	Amount0 decimal.Decimal `json:"amount0"`
	Amount1 decimal.Decimal `json:"amount1"`
}

// NewVaultAmounts scales raw using the token decimals.
func NewVaultAmounts(raw TokenAmounts, token0, token1 TokenMeta) VaultAmounts {
	return VaultAmounts{
		Raw:     raw,
		Token0:  token0.Symbol,
		Token1:  token1.Symbol,
		Amount0: token0.Amount(raw.Amount0),
		Amount1: token1.Amount(raw.Amount1),
	}
}

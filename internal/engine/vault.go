package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaultScope/internal/model"
	"vaultScope/internal/tickmath"
)

// ErrNoVault is returned by vault queries when no vault is configured.
var ErrNoVault = errors.New("vault is not configured")

// VaultReader reads a liquidity vault. vault.Reader is the on-chain implementation.
type VaultReader interface {
	State(ctx context.Context) (model.VaultState, error)
	Balances(ctx context.Context) (model.TokenAmounts, error)
	TotalAmounts(ctx context.Context) (model.TokenAmounts, error)
	PositionAmounts(ctx context.Context, tickLower, tickUpper int) (model.TokenAmounts, error)
}

func WithVault(v VaultReader) Option {
	return func(e *Engine) {
		e.vault = v
	}
}

// VaultState returns the vault's ranges, supply and fees.
func (e *Engine) VaultState(ctx context.Context) (model.VaultState, error) {
	if e.vault == nil {
		return model.VaultState{}, ErrNoVault
	}
	started := time.Now()
	state, err := e.vault.State(ctx)
	e.observe("vault_state", started, err)
	if err != nil {
		return model.VaultState{}, fmt.Errorf("%w: vault state: %w", ErrUpstream, err)
	}
	return state, nil
}

// VaultBalances returns the tokens held idle by the vault.
func (e *Engine) VaultBalances(ctx context.Context) (model.VaultAmounts, error) {
	return e.vaultAmounts(ctx, "vault_balances", e.vaultBalances)
}

// VaultTotalAmounts returns idle plus deployed tokens.
func (e *Engine) VaultTotalAmounts(ctx context.Context) (model.VaultAmounts, error) {
	return e.vaultAmounts(ctx, "vault_total_amounts", e.vaultTotals)
}

// VaultPositionAmounts returns the tokens the vault holds in one position.
func (e *Engine) VaultPositionAmounts(ctx context.Context, tickLower, tickUpper int) (model.VaultAmounts, error) {
	if tickLower >= tickUpper {
		return model.VaultAmounts{}, fmt.Errorf("%w: tickLower %d must be below tickUpper %d", ErrInvalidInput, tickLower, tickUpper)
	}
	if err := tickmath.CheckTick(tickLower); err != nil {
		return model.VaultAmounts{}, err
	}
	if err := tickmath.CheckTick(tickUpper); err != nil {
		return model.VaultAmounts{}, err
	}
	return e.vaultAmounts(ctx, "vault_position_amounts", func(ctx context.Context) (model.TokenAmounts, error) {
		return e.vault.PositionAmounts(ctx, tickLower, tickUpper)
	})
}

func (e *Engine) vaultBalances(ctx context.Context) (model.TokenAmounts, error) {
	return e.vault.Balances(ctx)
}

func (e *Engine) vaultTotals(ctx context.Context) (model.TokenAmounts, error) {
	return e.vault.TotalAmounts(ctx)
}

func (e *Engine) vaultAmounts(ctx context.Context, method string, read func(context.Context) (model.TokenAmounts, error)) (model.VaultAmounts, error) {
	if e.vault == nil {
		return model.VaultAmounts{}, ErrNoVault
	}
	started := time.Now()
	raw, err := read(ctx)
	e.observe(method, started, err)
	if err != nil {
		return model.VaultAmounts{}, fmt.Errorf("%w: %s: %w", ErrUpstream, method, err)
	}
	token0, token1, err := e.Tokens(ctx)
	if err != nil {
		return model.VaultAmounts{}, err
	}
	return model.NewVaultAmounts(raw, token0, token1), nil
}

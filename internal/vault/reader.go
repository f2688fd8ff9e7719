package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/model"
	"vaultScope/internal/pool"
)

// Reader reads one vault contract. All calls are eth_call views.
type Reader struct {
	caller  pool.Caller
	address common.Address
	block   *big.Int
	logger  *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// AtBlock pins every read to a block height.
func AtBlock(number uint64) Option {
	return func(r *Reader) {
		if number > 0 {
			r.block = new(big.Int).SetUint64(number)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewReader(caller pool.Caller, address common.Address, opts ...Option) (*Reader, error) {
	if caller == nil {
		return nil, errors.New("chain client is nil")
	}
	r := &Reader{caller: caller, address: address, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Address returns the vault address.
func (r *Reader) Address() common.Address {
	return r.address
}

// State reads the vault's pool, tokens, position ranges and supply.
func (r *Reader) State(ctx context.Context) (model.VaultState, error) {
	state := model.VaultState{Address: r.address.Hex()}

	for method, dst := range map[string]*string{
		"pool":   &state.Pool,
		"token0": &state.Token0,
		"token1": &state.Token1,
	} {
		values, err := r.call(ctx, method)
		if err != nil {
			return model.VaultState{}, err
		}
		addr, err := pool.AsAddress(values[0])
		if err != nil {
			return model.VaultState{}, fmt.Errorf("%s: %w", method, err)
		}
		*dst = addr.Hex()
	}

	for method, dst := range map[string]*int{
		"baseLower":  &state.BaseLower,
		"baseUpper":  &state.BaseUpper,
		"limitLower": &state.LimitLower,
		"limitUpper": &state.LimitUpper,
	} {
		v, err := r.readInt(ctx, method)
		if err != nil {
			return model.VaultState{}, err
		}
		tick, err := pool.Int24(v)
		if err != nil {
			return model.VaultState{}, fmt.Errorf("%s: %w", method, err)
		}
		*dst = tick
	}

	for method, dst := range map[string]**big.Int{
		"totalSupply":          &state.TotalSupply,
		"maxTotalSupply":       &state.MaxTotalSupply,
		"protocolFee":          &state.ProtocolFee,
		"accruedProtocolFees0": &state.AccruedProtocolFees0,
		"accruedProtocolFees1": &state.AccruedProtocolFees1,
	} {
		v, err := r.readInt(ctx, method)
		if err != nil {
			return model.VaultState{}, err
		}
		*dst = v
	}
	return state, nil
}

// Balances reads the idle token balances held by the vault itself.
func (r *Reader) Balances(ctx context.Context) (model.TokenAmounts, error) {
	balance0, err := r.readInt(ctx, "getBalance0")
	if err != nil {
		return model.TokenAmounts{}, err
	}
	balance1, err := r.readInt(ctx, "getBalance1")
	if err != nil {
		return model.TokenAmounts{}, err
	}
	return model.TokenAmounts{Amount0: balance0, Amount1: balance1}, nil
}

// TotalAmounts reads idle balances plus everything deposited in positions.
func (r *Reader) TotalAmounts(ctx context.Context) (model.TokenAmounts, error) {
	return r.pair(ctx, "getTotalAmounts")
}

// PositionAmounts reads the tokens the vault holds in [tickLower, tickUpper),
// including uncollected fees.
func (r *Reader) PositionAmounts(ctx context.Context, tickLower, tickUpper int) (model.TokenAmounts, error) {
	return r.pair(ctx, "getPositionAmounts", big.NewInt(int64(tickLower)), big.NewInt(int64(tickUpper)))
}

func (r *Reader) pair(ctx context.Context, method string, args ...interface{}) (model.TokenAmounts, error) {
	values, err := r.call(ctx, method, args...)
	if err != nil {
		return model.TokenAmounts{}, err
	}
	if len(values) != 2 {
		return model.TokenAmounts{}, fmt.Errorf("unexpected %s values: %d", method, len(values))
	}
	amount0, err := pool.AsBigInt(values[0])
	if err != nil {
		return model.TokenAmounts{}, fmt.Errorf("%s amount0: %w", method, err)
	}
	amount1, err := pool.AsBigInt(values[1])
	if err != nil {
		return model.TokenAmounts{}, fmt.Errorf("%s amount1: %w", method, err)
	}
	return model.TokenAmounts{Amount0: amount0, Amount1: amount1}, nil
}

func (r *Reader) readInt(ctx context.Context, method string) (*big.Int, error) {
	values, err := r.call(ctx, method)
	if err != nil {
		return nil, err
	}
	v, err := pool.AsBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}

func (r *Reader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	values, err := pool.Call(ctx, r.caller, r.address, parsed, method, r.block, args...)
	if err != nil {
		r.logger.Debug("vault call failed", zap.String("vault", r.address.Hex()), zap.String("method", method), zap.Error(err))
		return nil, err
	}
	return values, nil
}

package pool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/model"
)

// Caller performs read-only contract calls. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader reads state from a single pool contract.
type Reader struct {
	caller  Caller
	address common.Address
	block   *big.Int
	logger  *zap.Logger

	mu   sync.Mutex
	meta *model.PoolMeta
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// AtBlock pins every read to a block height.
func AtBlock(number uint64) ReaderOption {
	return func(r *Reader) {
		if number > 0 {
			r.block = new(big.Int).SetUint64(number)
		}
	}
}

// WithLogger sets the reader logger.
func WithLogger(logger *zap.Logger) ReaderOption {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader builds a pool reader.
func NewReader(caller Caller, address common.Address, opts ...ReaderOption) (*Reader, error) {
	if caller == nil {
		return nil, errors.New("chain client is nil")
	}
	r := &Reader{
		caller:  caller,
		address: address,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Address returns the pool address.
func (r *Reader) Address() common.Address {
	return r.address
}

// Slot0 reads the pool's slot0.
func (r *Reader) Slot0(ctx context.Context) (model.Slot0, error) {
	values, err := r.call(ctx, "slot0")
	if err != nil {
		return model.Slot0{}, err
	}
	if len(values) != 7 {
		return model.Slot0{}, fmt.Errorf("unexpected slot0 values: %d", len(values))
	}

	sqrtPrice, err := AsBigInt(values[0])
	if err != nil {
		return model.Slot0{}, fmt.Errorf("sqrtPriceX96: %w", err)
	}
	tickInt, err := AsBigInt(values[1])
	if err != nil {
		return model.Slot0{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := Int24(tickInt)
	if err != nil {
		return model.Slot0{}, fmt.Errorf("tick: %w", err)
	}

	slot := model.Slot0{SqrtPriceX96: sqrtPrice, Tick: tick}
	slot.ObservationIndex, _ = values[2].(uint16)
	slot.ObservationCardinality, _ = values[3].(uint16)
	slot.ObservationCardinalityNext, _ = values[4].(uint16)
	slot.FeeProtocol, _ = values[5].(uint8)
	slot.Unlocked, _ = values[6].(bool)
	return slot, nil
}

// Liquidity reads the in-range liquidity.
func (r *Reader) Liquidity(ctx context.Context) (*big.Int, error) {
	values, err := r.call(ctx, "liquidity")
	if err != nil {
		return nil, err
	}
	liquidity, err := AsBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("liquidity: %w", err)
	}
	return liquidity, nil
}

// Tick reads the state stored for one tick.
func (r *Reader) Tick(ctx context.Context, tick int) (model.TickInfo, error) {
	values, err := r.call(ctx, "ticks", big.NewInt(int64(tick)))
	if err != nil {
		return model.TickInfo{}, err
	}
	if len(values) != 8 {
		return model.TickInfo{}, fmt.Errorf("unexpected ticks values: %d", len(values))
	}

	ints := make([]*big.Int, 6)
	for i := range ints {
		v, err := AsBigInt(values[i])
		if err != nil {
			return model.TickInfo{}, fmt.Errorf("ticks(%d) field %d: %w", tick, i, err)
		}
		ints[i] = v
	}

	info := model.TickInfo{
		LiquidityGross:                 ints[0],
		LiquidityNet:                   ints[1],
		FeeGrowthOutside0X128:          ints[2],
		FeeGrowthOutside1X128:          ints[3],
		TickCumulativeOutside:          ints[4].Int64(),
		SecondsPerLiquidityOutsideX128: ints[5],
	}
	info.SecondsOutside, _ = values[6].(uint32)
	info.Initialized, _ = values[7].(bool)
	return info, nil
}

// Meta reads the immutable pool parameters. The result is cached after the
// first successful read.
func (r *Reader) Meta(ctx context.Context) (model.PoolMeta, error) {
	r.mu.Lock()
	cached := r.meta
	r.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	values, err := r.call(ctx, "token0")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token0, err := AsAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = r.call(ctx, "token1")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token1, err := AsAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	values, err = r.call(ctx, "fee")
	if err != nil {
		return model.PoolMeta{}, err
	}
	fee, err := AsBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("fee: %w", err)
	}

	values, err = r.call(ctx, "tickSpacing")
	if err != nil {
		return model.PoolMeta{}, err
	}
	spacingInt, err := AsBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}
	spacing, err := Int24(spacingInt)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}

	meta := model.PoolMeta{
		Address:     r.address.Hex(),
		Token0:      token0.Hex(),
		Token1:      token1.Hex(),
		Fee:         uint32(fee.Uint64()),
		TickSpacing: spacing,
	}
	r.mu.Lock()
	r.meta = &meta
	r.mu.Unlock()
	return meta, nil
}

func (r *Reader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	return Call(ctx, r.caller, r.address, parsed, method, r.block, args...)
}

// Call packs method, performs an eth_call against to and unpacks the result.
func Call(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Symbol and name
// fall back to the bytes32 variants; only decimals is required.
func FetchTokenMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, errors.New("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := erc20StringABI.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20Bytes32ABI.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := Call(ctx, caller, token, stringABI, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	meta.Symbol = readText(ctx, caller, token, "symbol", stringABI, bytes32ABI, logger)
	meta.Name = readText(ctx, caller, token, "name", stringABI, bytes32ABI, logger)
	return meta, nil
}

func readText(ctx context.Context, caller Caller, token common.Address, method string, stringABI, bytes32ABI abi.ABI, logger *zap.Logger) string {
	if values, err := Call(ctx, caller, token, stringABI, method, nil); err == nil {
		if text, ok := values[0].(string); ok {
			return text
		}
	}
	values, err := Call(ctx, caller, token, bytes32ABI, method, nil)
	if err != nil {
		logger.Debug("erc20 call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
		return ""
	}
	text, _ := bytes32ToString(values[0])
	return text
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

// AsAddress accepts the address shapes the ABI decoder produces.
func AsAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

// AsBigInt copies any ABI-decoded integer into a new big.Int.
func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

// Int24 narrows a decoded int24 to int.
func Int24(value *big.Int) (int, error) {
	if value == nil {
		return 0, errors.New("int24 is nil")
	}
	if !value.IsInt64() || value.Int64() < -1<<23 || value.Int64() > 1<<23-1 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int(value.Int64()), nil
}

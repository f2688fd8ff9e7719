package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/impact"
	"vaultScope/internal/liquidity"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/tickmath"
	"vaultScope/internal/valuation"
)

var (
	// ErrUpstream marks failed reads from the pool contract.
	ErrUpstream = errors.New("upstream read failed")
	// ErrInvalidInput marks caller errors such as a bad window size.
	ErrInvalidInput = errors.New("invalid input")
)

// PoolReader reads pool state. pool.Reader is the on-chain implementation.
type PoolReader interface {
	Slot0(ctx context.Context) (model.Slot0, error)
	Liquidity(ctx context.Context) (*big.Int, error)
	Tick(ctx context.Context, tick int) (model.TickInfo, error)
	Meta(ctx context.Context) (model.PoolMeta, error)
}

// TokenSource resolves token metadata by address.
type TokenSource interface {
	Token(ctx context.Context, address string) (model.TokenMeta, error)
}

// Config tunes the engine. Zero TickSpacing is read from the pool; tokens
// without a symbol are resolved through the TokenSource.
type Config struct {
	TickSpacing  int
	Token0       model.TokenMeta
	Token1       model.TokenMeta
	DefaultSteps int
	MaxSteps     int
	Concurrency  int
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithValuation(v *valuation.Engine) Option {
	return func(e *Engine) {
		if v != nil {
			e.valuer = v
		}
	}
}

func WithTokenSource(src TokenSource) Option {
	return func(e *Engine) {
		e.tokens = src
	}
}

// Engine answers liquidity, valuation and price impact queries for one pool.
// Every call reads fresh state; nothing derived is cached between calls.
type Engine struct {
	reader  PoolReader
	cfg     Config
	valuer  *valuation.Engine
	tokens  TokenSource
	vault   VaultReader
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New builds an Engine.
func New(reader PoolReader, cfg Config, opts ...Option) (*Engine, error) {
	if reader == nil {
		return nil, errors.New("pool reader is nil")
	}
	if cfg.TickSpacing < 0 {
		return nil, fmt.Errorf("tick spacing must not be negative: %d", cfg.TickSpacing)
	}
	if cfg.DefaultSteps <= 0 {
		cfg.DefaultSteps = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	e := &Engine{
		reader: reader,
		cfg:    cfg,
		valuer: valuation.NewEngine(nil),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Snapshot is the pool state at the time of the call.
type Snapshot struct {
	Slot0       model.Slot0     `json:"slot0"`
	Liquidity   *big.Int        `json:"liquidity"`
	TickSpacing int             `json:"tickSpacing"`
	NearestTick int             `json:"nearestTick"`
	Price0      decimal.Decimal `json:"price0"`
	Price1      decimal.Decimal `json:"price1"`
	Token0      model.TokenMeta `json:"token0"`
	Token1      model.TokenMeta `json:"token1"`
}

// PoolSnapshot reads slot0 and liquidity and prices the current tick.
func (e *Engine) PoolSnapshot(ctx context.Context) (Snapshot, error) {
	st, err := e.state(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	token0, token1, err := e.Tokens(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	price0, err := tickmath.Price0AtTick(st.slot0.Tick, token0.Decimals, token1.Decimals)
	if err != nil {
		return Snapshot{}, err
	}
	price1, err := tickmath.Price1AtTick(st.slot0.Tick, token0.Decimals, token1.Decimals)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Slot0:       st.slot0,
		Liquidity:   st.liquidity,
		TickSpacing: st.spacing,
		NearestTick: tickmath.NearestGridTick(st.slot0.Tick, st.spacing, tickmath.Floor),
		Price0:      price0,
		Price1:      price1,
		Token0:      token0,
		Token1:      token1,
	}, nil
}

// ComputeLiquidityCurve builds the active liquidity curve steps spacings
// around the current tick. Zero steps uses the configured default.
func (e *Engine) ComputeLiquidityCurve(ctx context.Context, steps int) (liquidity.Curve, error) {
	steps, err := e.steps(steps)
	if err != nil {
		return liquidity.Curve{}, err
	}
	st, err := e.state(ctx)
	if err != nil {
		return liquidity.Curve{}, err
	}
	return e.curve(ctx, st, steps)
}

// ValuateTicks values every bucket of the curve around the current tick.
func (e *Engine) ValuateTicks(ctx context.Context, steps int) ([]valuation.TickEntry, error) {
	steps, err := e.steps(steps)
	if err != nil {
		return nil, err
	}
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}
	curve, err := e.curve(ctx, st, steps+e.lag())
	if err != nil {
		return nil, err
	}
	return e.valuer.ValuateTicks(curve)
}

// ValuateTick values the bucket holding tick and describes what is locked there.
func (e *Engine) ValuateTick(ctx context.Context, tick int) (valuation.TickEntry, string, error) {
	if err := tickmath.CheckTick(tick); err != nil {
		return valuation.TickEntry{}, "", err
	}
	st, err := e.state(ctx)
	if err != nil {
		return valuation.TickEntry{}, "", err
	}
	bucket := tickmath.NearestGridTick(tick, st.spacing, tickmath.Floor)
	pivot := tickmath.NearestGridTick(st.slot0.Tick, st.spacing, tickmath.Floor)
	steps := abs(bucket-pivot)/st.spacing + 1
	if err := e.checkSteps(steps); err != nil {
		return valuation.TickEntry{}, "", err
	}

	curve, err := e.curve(ctx, st, steps+e.lag())
	if err != nil {
		return valuation.TickEntry{}, "", err
	}
	token0, token1, err := e.Tokens(ctx)
	if err != nil {
		return valuation.TickEntry{}, "", err
	}
	return e.valuer.ValuateTick(curve, bucket, token0.Symbol, token1.Symbol)
}

// SimulatePriceImpact sizes the swap that moves the pool to expectedTick.
// A target equal to the current tick is reported as a no-op result.
func (e *Engine) SimulatePriceImpact(ctx context.Context, expectedTick int) (impact.Result, error) {
	st, err := e.state(ctx)
	if err != nil {
		return impact.Result{}, err
	}
	plan, err := impact.NewPlan(st.slot0.Tick, expectedTick, st.spacing)
	if err != nil {
		return impact.Result{}, err
	}
	if plan.NoOp {
		e.metrics.ObserveImpact(string(impact.StatusNoop))
		return impact.NoOpResult(plan), nil
	}
	if err := e.checkSteps(plan.SweepSteps()); err != nil {
		return impact.Result{}, err
	}

	curve, err := e.curve(ctx, st, plan.SweepSteps()+e.lag())
	if err != nil {
		return impact.Result{}, err
	}
	entries, err := e.valuer.ValuateTicks(curve)
	if err != nil {
		return impact.Result{}, err
	}
	token0, token1, err := e.Tokens(ctx)
	if err != nil {
		return impact.Result{}, err
	}
	result, err := impact.Simulate(plan, entries, token0, token1)
	if err != nil {
		return impact.Result{}, err
	}
	e.metrics.ObserveImpact(string(result.Status))
	e.logger.Debug("price impact simulated",
		zap.Int("current_tick", plan.CurrentTick),
		zap.Int("expected_tick", plan.ExpectedTick),
		zap.String("direction", string(plan.Direction)),
		zap.String("amount_to_buy", result.AmountToBuy.String()),
	)
	return result, nil
}

// SimulatePriceImpactAtPrice maps price through tickmath.TickFromPrice and
// simulates the move to that tick. price is in the PriceFromTick convention,
// 1.0001^-tick * 10^(decimals0-decimals1): with equal decimals that is one
// token1 priced in token0, and it falls as the tick rises.
func (e *Engine) SimulatePriceImpactAtPrice(ctx context.Context, price decimal.Decimal) (impact.Result, error) {
	token0, token1, err := e.Tokens(ctx)
	if err != nil {
		return impact.Result{}, err
	}
	tick, err := tickmath.TickFromPrice(price, token0.Decimals, token1.Decimals)
	if err != nil {
		return impact.Result{}, fmt.Errorf("%w: price %s: %w", ErrInvalidInput, price.String(), err)
	}
	return e.SimulatePriceImpact(ctx, tick)
}

// TicksData returns the stored state of ticksToRead grid ticks on each side
// of center. A nil center uses the current pool tick.
func (e *Engine) TicksData(ctx context.Context, ticksToRead int, center *int) ([]model.TickData, error) {
	ticksToRead, err := e.steps(ticksToRead)
	if err != nil {
		return nil, err
	}
	spacing, err := e.spacing(ctx)
	if err != nil {
		return nil, err
	}
	var middle int
	if center != nil {
		if err := tickmath.CheckTick(*center); err != nil {
			return nil, err
		}
		middle = *center
	} else {
		slot0, err := e.slot0(ctx)
		if err != nil {
			return nil, err
		}
		middle = slot0.Tick
	}
	token0, token1, err := e.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	ticks := gridAround(tickmath.NearestGridTick(middle, spacing, tickmath.Floor), spacing, ticksToRead)
	infos, err := e.readTicks(ctx, ticks)
	if err != nil {
		return nil, err
	}

	out := make([]model.TickData, 0, len(ticks))
	for _, tick := range ticks {
		info := infos[tick]
		price0, err := tickmath.Price0AtTick(tick, token0.Decimals, token1.Decimals)
		if err != nil {
			return nil, err
		}
		price1, err := tickmath.Price1AtTick(tick, token0.Decimals, token1.Decimals)
		if err != nil {
			return nil, err
		}
		out = append(out, model.TickData{
			Tick:           tick,
			Price0:         price0,
			Price1:         price1,
			Initialized:    info.Initialized,
			LiquidityGross: orZero(info.LiquidityGross),
			LiquidityNet:   orZero(info.LiquidityNet),
		})
	}
	return out, nil
}

// Tokens returns token0 and token1 metadata, resolving unset entries.
func (e *Engine) Tokens(ctx context.Context) (model.TokenMeta, model.TokenMeta, error) {
	token0, token1 := e.cfg.Token0, e.cfg.Token1
	if token0.Symbol != "" && token1.Symbol != "" {
		return token0, token1, nil
	}
	if e.tokens == nil {
		return model.TokenMeta{}, model.TokenMeta{}, errors.New("token metadata is not configured")
	}
	meta, err := e.meta(ctx)
	if err != nil {
		return model.TokenMeta{}, model.TokenMeta{}, err
	}
	if token0.Symbol == "" {
		if token0, err = e.tokens.Token(ctx, meta.Token0); err != nil {
			return model.TokenMeta{}, model.TokenMeta{}, fmt.Errorf("%w: token0: %w", ErrUpstream, err)
		}
	}
	if token1.Symbol == "" {
		if token1, err = e.tokens.Token(ctx, meta.Token1); err != nil {
			return model.TokenMeta{}, model.TokenMeta{}, fmt.Errorf("%w: token1: %w", ErrUpstream, err)
		}
	}
	return token0, token1, nil
}

func (e *Engine) steps(steps int) (int, error) {
	if steps < 0 {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, liquidity.ErrInvalidSteps)
	}
	if steps == 0 {
		steps = e.cfg.DefaultSteps
	}
	if err := e.checkSteps(steps); err != nil {
		return 0, err
	}
	return steps, nil
}

func (e *Engine) checkSteps(steps int) error {
	if e.cfg.MaxSteps > 0 && steps > e.cfg.MaxSteps {
		return fmt.Errorf("%w: %d ticks requested, limit is %d", ErrInvalidInput, steps, e.cfg.MaxSteps)
	}
	return nil
}

// lag is the extra step the shifted valuation consumes.
func (e *Engine) lag() int {
	if e.valuer.Lagged() {
		return 1
	}
	return 0
}

func (e *Engine) observe(method string, started time.Time, err error) {
	e.metrics.ObserveRead(method, started, err)
	if err != nil {
		e.logger.Warn("pool read failed", zap.String("method", method), zap.Error(err))
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

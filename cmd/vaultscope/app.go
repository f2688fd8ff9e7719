package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/cache"
	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/engine"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/pool"
	"vaultScope/internal/storage/postgres"
	"vaultScope/internal/valuation"
	"vaultScope/internal/vault"
)

// app holds the components built from config for one command run.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	client  *chain.Client
	store   *postgres.Store
	redis   *cache.RedisTokenCache
	metrics *metrics.Metrics
	pool    common.Address
	engine  *engine.Engine
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// newApp dials the chain, resolves the pool and wires the engine.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateChain(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	cfg := a.cfg

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.WithRateLimit(cfg.RPCRate, cfg.RPCBurst))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	a.client = client
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.store = store
	}

	a.pool, err = a.resolvePool(ctx)
	if err != nil {
		return err
	}

	var readerOpts []pool.ReaderOption
	readerOpts = append(readerOpts, pool.WithLogger(a.logger))
	if cfg.Block > 0 {
		readerOpts = append(readerOpts, pool.AtBlock(cfg.Block))
	}
	reader, err := pool.NewReader(client, a.pool, readerOpts...)
	if err != nil {
		return err
	}

	var tokenCache cache.TokenCache = cache.NewMemoryTokenCache()
	if cfg.Redis.Addr != "" {
		a.redis = cache.NewRedisTokenCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err := a.redis.Ping(ctx); err != nil {
			a.logger.Warn("redis unavailable, token metadata is not shared", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		tokenCache = a.redis
	}
	resolver := cache.NewResolver(tokenCache, func(ctx context.Context, address string) (model.TokenMeta, error) {
		token, err := chain.ParseAddress(address)
		if err != nil {
			return model.TokenMeta{}, err
		}
		return pool.FetchTokenMeta(ctx, client, token, a.logger)
	}, a.logger)

	var valuationOpts []valuation.Option
	if cfg.Engine.Lagged {
		valuationOpts = append(valuationOpts, valuation.WithLagged())
	}

	engineOpts := []engine.Option{
		engine.WithLogger(a.logger),
		engine.WithMetrics(a.metrics),
		engine.WithValuation(valuation.NewEngine(nil, valuationOpts...)),
		engine.WithTokenSource(resolver),
	}
	if cfg.Vault.Address != "" {
		vaultReader, err := a.vaultReader()
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, engine.WithVault(vaultReader))
	}

	a.engine, err = engine.New(reader, engine.Config{
		TickSpacing:  cfg.Pool.TickSpacing,
		Token0:       cfg.Token0.Meta(),
		Token1:       cfg.Token1.Meta(),
		DefaultSteps: cfg.Engine.DefaultSteps,
		MaxSteps:     cfg.Engine.MaxSteps,
		Concurrency:  cfg.Engine.Concurrency,
	}, engineOpts...)
	if err != nil {
		return err
	}

	a.logger.Info("pool ready",
		zap.String("chain_id", chainID.String()),
		zap.String("pool", a.pool.Hex()),
		zap.String("vault", cfg.Vault.Address),
		zap.Uint64("block", cfg.Block),
		zap.Bool("lagged", cfg.Engine.Lagged),
		zap.Bool("postgres", a.store != nil),
		zap.Bool("redis", a.redis != nil),
	)
	return nil
}

func (a *app) vaultReader() (*vault.Reader, error) {
	address, err := chain.ParseAddress(a.cfg.Vault.Address)
	if err != nil {
		return nil, fmt.Errorf("vault address: %w", err)
	}
	opts := []vault.Option{vault.WithLogger(a.logger)}
	if a.cfg.Block > 0 {
		opts = append(opts, vault.AtBlock(a.cfg.Block))
	}
	return vault.NewReader(a.client, address, opts...)
}

// resolvePool returns the configured pool address, looking the name up in
// the contracts table when no address is set.
func (a *app) resolvePool(ctx context.Context) (common.Address, error) {
	if a.cfg.Pool.Address != "" {
		return chain.ParseAddress(a.cfg.Pool.Address)
	}
	if a.store == nil {
		return common.Address{}, errors.New("pool.name lookup requires pg-dsn")
	}
	contract, err := a.store.GetContract(ctx, a.cfg.Pool.Name)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve pool %q: %w", a.cfg.Pool.Name, err)
	}
	return chain.ParseAddress(contract.Address)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.client != nil {
		a.client.Close()
	}
	_ = a.logger.Sync()
}

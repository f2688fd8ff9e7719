package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vaultScope/internal/model"
)

const envPrefix = "VAULTSCOPE"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL       string
	RPCRate      float64
	RPCBurst     int
	Block        uint64
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string

	Pool   PoolConfig
	Vault  VaultConfig
	Token0 TokenConfig
	Token1 TokenConfig
	Engine EngineConfig
	Server ServerConfig
	Redis  RedisConfig
	Watch  WatchConfig

	PGDSN      string
	Migrations string
}

// PoolConfig selects the pool. Name is looked up in the contracts table
// when Address is empty.
type PoolConfig struct {
	Address     string
	Name        string
	TickSpacing int
}

// VaultConfig points at the vault managing liquidity in the pool. Vault
// queries are disabled when Address is empty.
type VaultConfig struct {
	Address string
}

// TokenConfig is static token metadata. Tokens without a symbol are read
// from chain.
type TokenConfig struct {
	Address  string
	Symbol   string
	Decimals uint8
}

// Meta converts the config into token metadata.
func (t TokenConfig) Meta() model.TokenMeta {
	return model.TokenMeta{Address: t.Address, Symbol: t.Symbol, Decimals: t.Decimals}
}

type EngineConfig struct {
	DefaultSteps int
	MaxSteps     int
	Concurrency  int
	Lagged       bool
}

type ServerConfig struct {
	Addr            string
	RequestTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type WatchConfig struct {
	From              uint64
	To                uint64
	BatchSize         uint64
	Confirmations     uint64
	PollInterval      time.Duration
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	Timestamps        bool
	StoreEvents       bool
}

// flagKeys maps short flag names to their nested config keys. Flags not
// listed bind under their own name.
var flagKeys = map[string]string{
	"pool":            "pool.address",
	"pool-name":       "pool.name",
	"tick-spacing":    "pool.tick-spacing",
	"vault":           "vault.address",
	"addr":            "server.addr",
	"request-timeout": "server.request-timeout",
	"steps":           "engine.default-steps",
	"max-steps":       "engine.max-steps",
	"concurrency":     "engine.concurrency",
	"lagged":          "engine.lagged",
	"redis":           "redis.addr",
	"from":            "watch.from",
	"to":              "watch.to",
	"batch-size":      "watch.batch-size",
	"confirmations":   "watch.confirmations",
	"poll-interval":   "watch.poll-interval",
	"out":             "watch.out",
	"checkpoint":      "watch.checkpoint",
	"timestamps":      "watch.timestamps",
	"store-events":    "watch.store-events",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc-rps", 20.0)
	v.SetDefault("rpc-burst", 10)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	v.SetDefault("migrations", "./sql/postgres")

	v.SetDefault("engine.default-steps", 100)
	v.SetDefault("engine.max-steps", 2000)
	v.SetDefault("engine.concurrency", 16)
	v.SetDefault("engine.lagged", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request-timeout", 30*time.Second)
	v.SetDefault("server.read-timeout", 10*time.Second)
	v.SetDefault("server.write-timeout", 60*time.Second)
	v.SetDefault("server.idle-timeout", 120*time.Second)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)

	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("watch.batch-size", uint64(2000))
	v.SetDefault("watch.confirmations", uint64(2))
	v.SetDefault("watch.poll-interval", 12*time.Second)
	v.SetDefault("watch.out", "./data/pool_events.jsonl")
	v.SetDefault("watch.checkpoint", "./data/watch_checkpoint.json")
	v.SetDefault("watch.checkpoint-enabled", true)
}

// Load merges config file, environment variables, and flags into Config.
// Precedence is flag, env, file, default.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			key := f.Name
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	token0, err := loadToken(v, "token0")
	if err != nil {
		return Config{}, err
	}
	token1, err := loadToken(v, "token1")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:       v.GetString("rpc"),
		RPCRate:      v.GetFloat64("rpc-rps"),
		RPCBurst:     v.GetInt("rpc-burst"),
		Block:        v.GetUint64("block"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
		Pool: PoolConfig{
			Address:     strings.TrimSpace(v.GetString("pool.address")),
			Name:        strings.TrimSpace(v.GetString("pool.name")),
			TickSpacing: v.GetInt("pool.tick-spacing"),
		},
		Vault:  VaultConfig{Address: strings.TrimSpace(v.GetString("vault.address"))},
		Token0: token0,
		Token1: token1,
		Engine: EngineConfig{
			DefaultSteps: v.GetInt("engine.default-steps"),
			MaxSteps:     v.GetInt("engine.max-steps"),
			Concurrency:  v.GetInt("engine.concurrency"),
			Lagged:       v.GetBool("engine.lagged"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			RequestTimeout:  v.GetDuration("server.request-timeout"),
			ReadTimeout:     v.GetDuration("server.read-timeout"),
			WriteTimeout:    v.GetDuration("server.write-timeout"),
			IdleTimeout:     v.GetDuration("server.idle-timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown-timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Watch: WatchConfig{
			From:              v.GetUint64("watch.from"),
			To:                v.GetUint64("watch.to"),
			BatchSize:         v.GetUint64("watch.batch-size"),
			Confirmations:     v.GetUint64("watch.confirmations"),
			PollInterval:      v.GetDuration("watch.poll-interval"),
			Out:               v.GetString("watch.out"),
			Checkpoint:        v.GetString("watch.checkpoint"),
			CheckpointEnabled: v.GetBool("watch.checkpoint-enabled"),
			Timestamps:        v.GetBool("watch.timestamps"),
			StoreEvents:       v.GetBool("watch.store-events"),
		},
		PGDSN:      v.GetString("pg-dsn"),
		Migrations: v.GetString("migrations"),
	}
	return cfg, nil
}

func loadToken(v *viper.Viper, prefix string) (TokenConfig, error) {
	decimals := v.GetInt(prefix + ".decimals")
	if decimals < 0 || decimals > 255 {
		return TokenConfig{}, fmt.Errorf("%s.decimals out of range: %d", prefix, decimals)
	}
	return TokenConfig{
		Address:  strings.TrimSpace(v.GetString(prefix + ".address")),
		Symbol:   strings.TrimSpace(v.GetString(prefix + ".symbol")),
		Decimals: uint8(decimals),
	}, nil
}

// ValidateChain checks the settings every chain-reading command needs.
func (c Config) ValidateChain() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Pool.Address == "" && c.Pool.Name == "" {
		return fmt.Errorf("pool.address or pool.name is required")
	}
	if c.Pool.Address == "" && c.PGDSN == "" {
		return fmt.Errorf("pool.name lookup requires pg-dsn")
	}
	if c.Pool.TickSpacing < 0 {
		return fmt.Errorf("pool.tick-spacing must not be negative")
	}
	if c.Vault.Address != "" && !common.IsHexAddress(c.Vault.Address) {
		return fmt.Errorf("vault.address %q is not a hex address", c.Vault.Address)
	}
	return nil
}

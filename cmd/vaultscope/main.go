package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vaultscope",
		Short:        "Concentrated liquidity analytics for a single pool",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(
		newServeCmd(),
		newSlot0Cmd(),
		newCurveCmd(),
		newTVLCmd(),
		newImpactCmd(),
		newVaultCmd(),
		newWatchCmd(),
		newContractsCmd(),
		newMigrateCmd(),
		newLogsCmd(),
		newEventsCmd(),
	)
	return root
}

// addChainFlags registers the flags shared by every command that reads the pool.
func addChainFlags(fs *pflag.FlagSet) {
	fs.String("rpc", "", "EVM RPC URL")
	fs.Float64("rpc-rps", 20, "max RPC requests per second (0 disables throttling)")
	fs.Int("rpc-burst", 10, "RPC rate limiter burst")
	fs.String("pool", "", "pool contract address")
	fs.String("pool-name", "", "pool name in the contracts table, used when --pool is empty")
	fs.Int("tick-spacing", 0, "tick spacing, 0 reads it from the pool")
	fs.String("vault", "", "vault contract address, enables the vault queries")
	fs.Uint64("block", 0, "block to read state at, 0 means latest")
	fs.Int("max-steps", 2000, "largest accepted window in tick spacings")
	fs.Int("concurrency", 16, "parallel tick reads")
	fs.Bool("lagged", false, "use the one-step lagged tick valuation")
	fs.String("redis", "", "redis address for the token metadata cache")
	fs.String("pg-dsn", "", "Postgres DSN")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

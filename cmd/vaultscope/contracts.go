package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
	"vaultScope/internal/storage/postgres"
)

func newContractsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Manage the contract address book",
	}
	cmd.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <name> <address>",
			Short: "Store or replace a contract address",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, err := chain.ParseAddress(args[1])
				if err != nil {
					return err
				}
				return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
					return store.UpsertContract(ctx, model.Contract{Name: args[0], Address: addr.Hex()})
				})
			},
		},
		&cobra.Command{
			Use:   "get <name>",
			Short: "Print a stored contract",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
					contract, err := store.GetContract(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), contract)
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print every stored contract",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
					contracts, err := store.ListContracts(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), contracts)
				})
			},
		},
	)
	return cmd
}

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the newest stored request logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, _ := cmd.Flags().GetString("source")
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				return fmt.Errorf("limit must be positive")
			}
			return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
				logs, err := store.RecentLogs(ctx, source, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), logs)
			})
		},
	}
	cmd.Flags().String("source", "price-impact", "log source")
	cmd.Flags().Int("limit", 20, "rows to print")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect stored pool events",
	}
	cmd.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.AddCommand(&cobra.Command{
		Use:   "count <pool>",
		Short: "Print how many events are stored for a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := chain.ParseAddress(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
				n, err := store.CountEvents(ctx, addr.Hex())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	})
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
				dir, _ := cmd.Flags().GetString("migrations")
				applied, err := store.ApplyMigrations(ctx, dir)
				if err != nil {
					return err
				}
				for _, name := range applied {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("migrations", "./sql/postgres", "directory of .sql migrations")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func withStore(cmd *cobra.Command, fn func(context.Context, *postgres.Store) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := fn(ctx, store); err != nil {
		logger.Error("store command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}

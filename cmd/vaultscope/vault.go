package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Read the vault managing the pool's liquidity",
	}
	addChainFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		&cobra.Command{
			Use:   "state",
			Short: "Print the vault's ranges, supply and fees",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) (interface{}, error) {
					return a.engine.VaultState(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "balances",
			Short: "Print the tokens held idle by the vault",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) (interface{}, error) {
					return a.engine.VaultBalances(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "total-amounts",
			Short: "Print idle plus deployed vault tokens",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) (interface{}, error) {
					return a.engine.VaultTotalAmounts(ctx)
				})
			},
		},
		newVaultPositionsCmd(),
	)
	return cmd
}

func newVaultPositionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Print the tokens the vault holds in one position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lower, _ := cmd.Flags().GetInt("tick-lower")
			upper, _ := cmd.Flags().GetInt("tick-upper")
			return withApp(cmd, func(ctx context.Context, a *app) (interface{}, error) {
				return a.engine.VaultPositionAmounts(ctx, lower, upper)
			})
		},
	}
	cmd.Flags().Int("tick-lower", 0, "position lower tick")
	cmd.Flags().Int("tick-upper", 0, "position upper tick")
	_ = cmd.MarkFlagRequired("tick-lower")
	_ = cmd.MarkFlagRequired("tick-upper")
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newSlot0Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot0",
		Short: "Print the current pool snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) (interface{}, error) {
				return a.engine.PoolSnapshot(ctx)
			})
		},
	}
	addChainFlags(cmd.Flags())
	return cmd
}

func newCurveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the active liquidity curve around the current tick",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withApp(cmd, func(ctx context.Context, a *app) (interface{}, error) {
				return a.engine.ComputeLiquidityCurve(ctx, steps)
			})
		},
	}
	addChainFlags(cmd.Flags())
	cmd.Flags().Int("steps", 100, "window in tick spacings on each side")
	return cmd
}

type tickTVL struct {
	Entry       interface{} `json:"entry"`
	Description string      `json:"description"`
}

func newTVLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tvl",
		Short: "Print the value locked per tick range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			hasTick := cmd.Flags().Changed("tick")
			tick, _ := cmd.Flags().GetInt("tick")
			return withApp(cmd, func(ctx context.Context, a *app) (interface{}, error) {
				if !hasTick {
					return a.engine.ValuateTicks(ctx, steps)
				}
				entry, description, err := a.engine.ValuateTick(ctx, tick)
				if err != nil {
					return nil, err
				}
				return tickTVL{Entry: entry, Description: description}, nil
			})
		},
	}
	addChainFlags(cmd.Flags())
	cmd.Flags().Int("steps", 100, "window in tick spacings on each side")
	cmd.Flags().Int("tick", 0, "value only the bucket holding this tick")
	return cmd
}

func newImpactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impact",
		Short: "Size the swap that moves the pool to a target tick or price",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hasTick := cmd.Flags().Changed("tick")
			rawPrice, _ := cmd.Flags().GetString("price")
			if hasTick == (rawPrice != "") {
				return errors.New("exactly one of --tick or --price is required")
			}
			tick, _ := cmd.Flags().GetInt("tick")
			var price decimal.Decimal
			if rawPrice != "" {
				var err error
				if price, err = decimal.NewFromString(rawPrice); err != nil {
					return fmt.Errorf("parse price: %w", err)
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app) (interface{}, error) {
				if hasTick {
					return a.engine.SimulatePriceImpact(ctx, tick)
				}
				return a.engine.SimulatePriceImpactAtPrice(ctx, price)
			})
		},
	}
	addChainFlags(cmd.Flags())
	cmd.Flags().Int("tick", 0, "target tick")
	cmd.Flags().String("price", "", "target token0 price quoted in token1")
	return cmd
}

// withApp builds the app, runs fn and prints its result as JSON on stdout.
func withApp(cmd *cobra.Command, fn func(context.Context, *app) (interface{}, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := fn(ctx, a)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

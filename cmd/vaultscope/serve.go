package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pool analytics REST API",
		RunE:  runServe,
	}
	addChainFlags(cmd.Flags())
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Duration("request-timeout", 30*time.Second, "per-request timeout")
	cmd.Flags().Int("steps", 100, "default window in tick spacings")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []api.Option{api.WithLogger(a.logger), api.WithMetrics(a.metrics)}
	if a.store != nil {
		opts = append(opts, api.WithRequestLogger(a.store))
	}
	srv := api.NewServer(api.Config{
		Addr:           a.cfg.Server.Addr,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		IdleTimeout:    a.cfg.Server.IdleTimeout,
	}, a.engine, opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}

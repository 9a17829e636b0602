package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/stateguard/internal/cli"
	"github.com/aretw0/stateguard/internal/presentation/report"
	guardhttp "github.com/aretw0/stateguard/pkg/adapters/http"
	"github.com/aretw0/stateguard/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo server",
	Long: `Starts a small catalogue application behind the guard middleware.
Prometheus metrics are served at /metrics and a liveness probe at /health.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address; selects the redis store backend")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		cfg.Store.Backend = "redis"
		cfg.Store.Addr = addr
	}
	cfg.StartActions = append(cfg.StartActions, cli.DemoEntry)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	guard, stores, err := cli.NewGuard(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer stores.Close()

	router := guardhttp.NewRouter(guard, cli.DemoRoutes(logger), guardhttp.WithLogger(logger))
	router.Handle("/metrics", metrics.Handler())

	port, _ := cmd.Flags().GetString("port")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	report.PrintBanner(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s (store: %s)\n", srv.Addr, cfg.Store.Backend)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mfs-core/mfs_ledger/internal/config"
	"github.com/mfs-core/mfs_ledger/internal/infra"
	"github.com/mfs-core/mfs_ledger/internal/logging"
	"github.com/mfs-core/mfs_ledger/internal/routes"
	"github.com/mfs-core/mfs_ledger/internal/scheduler"
	"github.com/mfs-core/mfs_ledger/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so deferred cleanup runs on each exit path.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()

	backends, err := infra.Connect(ctx, cfg.DatabaseURL, cfg.RedisURL, cfg.AppName, logger)
	if err != nil {
		return fmt.Errorf("connect backends: %w", err)
	}
	defer backends.Close(logger)

	srv, err := server.New(ctx, cfg, backends.DB, backends.Cache, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	components := srv.Components()

	if cfg.IsDev() {
		if cfg.Operator.PIN == "" {
			logger.Warn("OPERATOR_PIN not set, operator not seeded")
		} else if _, err := components.Onboarding.SeedOperator(ctx, routes.OperatorFromConfig(cfg)); err != nil {
			return fmt.Errorf("seed operator: %w", err)
		}
	}

	jobs, err := scheduler.New(components.Ledger, cfg.AuditSchedule, logger)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}
	jobs.Start()
	defer jobs.Stop()

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server exited cleanly")
	return nil
}

// Command seed provisions the operator party and its wallet. It is safe to
// run repeatedly.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mfs-core/mfs_ledger/internal/config"
	"github.com/mfs-core/mfs_ledger/internal/infra"
	"github.com/mfs-core/mfs_ledger/internal/logging"
	"github.com/mfs-core/mfs_ledger/internal/routes"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.AppName)

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set to seed the operator")
	}
	if cfg.Operator.PIN == "" {
		return errors.New("OPERATOR_PIN must be set to seed the operator")
	}

	ctx := context.Background()
	backends, err := infra.Connect(ctx, cfg.DatabaseURL, "", cfg.AppName, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer backends.Close(logger)

	components, err := routes.Build(ctx, routes.Deps{Cfg: cfg, DB: backends.DB, Logger: logger})
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	acct, err := components.Onboarding.SeedOperator(ctx, routes.OperatorFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("seed operator: %w", err)
	}
	logger.Info("operator ready",
		"party_id", acct.Party.ID,
		"phone", acct.Party.Phone,
		"wallet_id", acct.Wallet.ID,
		"balance", acct.Wallet.Balance,
	)
	return nil
}

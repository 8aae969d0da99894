package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mfs-core/mfs_ledger/internal/auth"
	"github.com/mfs-core/mfs_ledger/internal/commission"
	"github.com/mfs-core/mfs_ledger/internal/config"
	"github.com/mfs-core/mfs_ledger/internal/infra"
	"github.com/mfs-core/mfs_ledger/internal/ledger"
	"github.com/mfs-core/mfs_ledger/internal/notification"
	"github.com/mfs-core/mfs_ledger/internal/onboarding"
	"github.com/mfs-core/mfs_ledger/internal/party"
	"github.com/mfs-core/mfs_ledger/internal/reporting"
	"github.com/mfs-core/mfs_ledger/internal/transfer"
	"github.com/mfs-core/mfs_ledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Components holds every service of the application.
type Components struct {
	Ledger     ledger.Ledger
	Tokens     *auth.Issuer
	Parties    *party.Service
	Wallets    *wallet.Service
	Onboarding *onboarding.Service
	Transfers  *transfer.Service
	Reporting  *reporting.Service
	Auth       *auth.Service
}

// Build constructs the services. Postgres backs the ledger and the party
// store when DB is set, otherwise both live in memory, which is only allowed
// in development.
func Build(ctx context.Context, d Deps) (*Components, error) {
	if !d.Cfg.IsDev() && d.DB == nil {
		return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	var (
		ledgerBackend ledger.Ledger
		partyRepo     party.Repository
	)
	if d.DB != nil {
		if err := infra.Migrate(ctx, d.DB); err != nil {
			return nil, err
		}
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		partyRepo = party.NewPostgresRepository(d.DB)
	} else {
		d.Logger.Warn("DATABASE_URL not set, using in-memory ledger")
		ledgerBackend = ledger.NewInMemory()
		partyRepo = party.NewMemoryRepository()
	}

	policy, err := commission.NewPolicy(d.Cfg.Fees)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	partySvc := party.NewService(partyRepo, ledgerBackend)
	walletSvc := wallet.NewService(ledgerBackend, wallet.Provisioning{
		Currency:               d.Cfg.Currency,
		InitialBalance:         d.Cfg.InitialBalance,
		OperatorInitialBalance: d.Cfg.OperatorInitialBalance,
	})
	notifier := notification.NewLoggerNotifier(d.Logger)

	return &Components{
		Ledger:     ledgerBackend,
		Tokens:     tokens,
		Parties:    partySvc,
		Wallets:    walletSvc,
		Onboarding: onboarding.NewService(partySvc, walletSvc, d.Logger),
		Transfers:  transfer.NewService(ledgerBackend, party.NewResolver(partyRepo), policy, d.Cfg.Operator.Phone, notifier, d.Logger),
		Reporting:  reporting.NewService(ledgerBackend, d.Cache, d.Cfg.SummaryCacheTTL, d.Logger),
		Auth:       auth.NewService(partySvc, tokens),
	}, nil
}

// OperatorFromConfig converts the configured operator identity.
func OperatorFromConfig(cfg config.Config) onboarding.Operator {
	return onboarding.Operator{
		Name:  cfg.Operator.Name,
		Phone: cfg.Operator.Phone,
		Email: cfg.Operator.Email,
		PIN:   cfg.Operator.PIN,
	}
}

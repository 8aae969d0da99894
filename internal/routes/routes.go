package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mfs-core/mfs_ledger/internal/auth"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
	"github.com/mfs-core/mfs_ledger/internal/onboarding"
	"github.com/mfs-core/mfs_ledger/internal/party"
	"github.com/mfs-core/mfs_ledger/internal/reporting"
	"github.com/mfs-core/mfs_ledger/internal/transfer"
	"github.com/mfs-core/mfs_ledger/internal/wallet"
)

// Setup configures middlewares and all application routes.
// Redis is mandatory outside development because transfers rely on it for
// idempotency.
func Setup(app *fiber.App, d Deps, c *Components) error {
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(ctx),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	onboardingHandler := onboarding.NewHandler(c.Onboarding)

	// Public routes
	api.Post("/parties/register", onboardingHandler.Register)
	RegisterAuthRoutes(api, auth.NewHandler(c.Auth), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit))

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(c.Tokens))
	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterTransferRoutes(protected, transfer.NewHandler(c.Transfers), idempotency)
	RegisterPartyRoutes(protected, party.NewHandler(c.Parties), onboardingHandler)
	RegisterWalletRoutes(protected, wallet.NewHandler(c.Wallets))
	RegisterReportingRoutes(protected, reporting.NewHandler(c.Reporting))
	return nil
}

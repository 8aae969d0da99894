package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mfs-core/mfs_ledger/internal/config"
	"github.com/mfs-core/mfs_ledger/internal/routes"
)

// Server wraps the Fiber application and the components it serves.
type Server struct {
	app        *fiber.App
	cfg        config.Config
	components *routes.Components
}

// New builds the services on top of db and cache (either may be nil in
// development) and wires them into a Fiber application.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := NewApp(cfg.AppName, logger)

	deps := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}
	components, err := routes.Build(ctx, deps)
	if err != nil {
		return nil, err
	}
	if err := routes.Setup(app, deps, components); err != nil {
		return nil, err
	}
	return &Server{app: app, cfg: cfg, components: components}, nil
}

// NewApp returns a Fiber application with the JSON error handler installed.
func NewApp(name string, logger *slog.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      name,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler(logger),
	})
}

// Components exposes the wired services to background jobs.
func (s *Server) Components() *routes.Components {
	return s.components
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

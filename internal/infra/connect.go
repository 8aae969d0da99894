package infra

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Backends are the optional external stores. A nil field means the service
// runs without that store.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Connect opens the stores whose URL is set. Empty URLs are skipped; callers
// decide whether that is acceptable.
func Connect(ctx context.Context, databaseURL, redisURL, appName string, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}
	if databaseURL != "" {
		db, err := NewPostgresPool(ctx, databaseURL, appName)
		if err != nil {
			return nil, err
		}
		b.DB = db
	}
	if redisURL != "" {
		cache, err := NewRedisClient(ctx, redisURL)
		if err != nil {
			b.Close(logger)
			return nil, err
		}
		b.Cache = cache
	}
	return b, nil
}

// Close releases every opened store.
func (b *Backends) Close(logger *slog.Logger) {
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	if b.DB != nil {
		b.DB.Close()
	}
}

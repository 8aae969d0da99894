package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	inProgressMarker     = "__in_progress__"
	idempotencyTimeout   = 2 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

type idempotencyStore struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Idempotency replays the stored response of a previously completed unsafe
// request carrying the same Idempotency-Key. Keys are scoped per caller when
// one is authenticated. Failed requests release their key so the client can
// retry.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := &idempotencyStore{cache: cache, ttl: ttl, logger: logger}
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		cacheKey := idempotencyPrefix + key
		if caller, ok := CallerFrom(c); ok {
			cacheKey = idempotencyPrefix + caller.PartyID + ":" + key
		}

		reserved, replay, err := store.reserve(cacheKey)
		if err != nil {
			return err
		}
		if !reserved {
			return store.replay(c, replay)
		}

		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}
		return store.persist(c, cacheKey)
	}
}

// reserve claims cacheKey with the in-progress marker. When the key is
// already taken it returns the stored value instead.
func (s *idempotencyStore) reserve(cacheKey string) (bool, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyTimeout)
	defer cancel()

	ok, err := s.cache.SetNX(ctx, cacheKey, inProgressMarker, s.ttl).Result()
	if err != nil {
		s.logger.Error("idempotency reservation failed", slog.String("key", cacheKey), slog.Any("error", err))
		return false, "", fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	}
	if ok {
		return true, "", nil
	}

	existing, err := s.cache.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		return false, "", fiber.NewError(fiber.StatusConflict, "duplicate request, retry")
	}
	if err != nil {
		s.logger.Error("idempotency lookup failed", slog.String("key", cacheKey), slog.Any("error", err))
		return false, "", fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	}
	return false, existing, nil
}

func (s *idempotencyStore) replay(c *fiber.Ctx, cached string) error {
	if cached == inProgressMarker {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		s.logger.Warn("failed to decode stored idempotent response", slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	for header, value := range stored.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) {
			continue
		}
		c.Set(header, value)
	}
	c.Set("Idempotent-Replayed", "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

func (s *idempotencyStore) persist(c *fiber.Ctx, cacheKey string) error {
	stored := storedResponse{
		Status:  c.Response().StatusCode(),
		Body:    string(c.Response().Body()),
		Headers: map[string]string{},
	}
	c.Response().Header.VisitAll(func(k, v []byte) {
		stored.Headers[string(k)] = string(v)
	})

	payload, err := json.Marshal(stored)
	if err != nil {
		s.logger.Error("failed to encode idempotent response", slog.String("key", cacheKey), slog.Any("error", err))
		s.release(cacheKey)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), idempotencyTimeout)
	defer cancel()
	if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
		// The request already committed; the response still goes out.
		s.logger.Error("failed to persist idempotent response", slog.String("key", cacheKey), slog.Any("error", err))
		s.cache.Del(ctx, cacheKey)
	}
	return nil
}

func (s *idempotencyStore) release(cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyTimeout)
	defer cancel()
	s.cache.Del(ctx, cacheKey)
}

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/logging"
)

func setupTestApp(t *testing.T, handler fiber.Handler, pre ...fiber.Handler) *fiber.App {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	app := fiber.New()
	for _, h := range pre {
		app.Use(h)
	}
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", handler)
	return app
}

func postResource(t *testing.T, app *fiber.App, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app := setupTestApp(t, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	status, _ := postResource(t, app, "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	var calls int32
	app := setupTestApp(t, func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})

	status, first := postResource(t, app, "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status, second := postResource(t, app, "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if first != second {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(second), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyReleasesKeyOnError(t *testing.T) {
	var calls int32
	app := setupTestApp(t, func(c *fiber.Ctx) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("boom")
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	if status, _ := postResource(t, app, "retry-me"); status != fiber.StatusInternalServerError {
		t.Fatalf("expected first attempt to fail, got %d", status)
	}
	if status, _ := postResource(t, app, "retry-me"); status != fiber.StatusCreated {
		t.Fatalf("expected retry to run the handler, got %d", status)
	}
	if calls != 2 {
		t.Fatalf("expected two handler calls, got %d", calls)
	}
}

func TestIdempotencyKeysAreScopedPerCaller(t *testing.T) {
	var calls int32
	handler := func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return c.SendStatus(fiber.StatusCreated)
	}
	caller := func(c *fiber.Ctx) error {
		c.Locals(callerKey, domain.Caller{PartyID: c.Get("X-Party"), Role: domain.RoleUser})
		return c.Next()
	}
	app := setupTestApp(t, handler, caller)

	for _, party := range []string{"p-1", "p-2", "p-1"} {
		req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
		req.Header.Set(idempotencyKeyHeader, "same-key")
		req.Header.Set("X-Party", party)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
	}
	if calls != 2 {
		t.Fatalf("expected one execution per caller, got %d", calls)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Get("/", RequestID(), func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "generated", header: "", keep: false},
		{name: "client id kept", header: "trace-123", keep: true},
		{name: "too long", header: strings.Repeat("a", maxRequestIDLen+1), keep: false},
		{name: "control characters", header: "bad\tid", keep: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(requestIDHeader, tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			got := resp.Header.Get(requestIDHeader)
			if tc.keep {
				if got != tc.header {
					t.Fatalf("expected %q, got %q", tc.header, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}

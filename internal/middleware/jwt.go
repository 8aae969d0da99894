package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

const callerKey = "caller"

// TokenVerifier turns a bearer token into the caller it was issued to.
type TokenVerifier interface {
	Verify(token string) (domain.Caller, error)
}

// JWTAuth validates bearer access tokens and stores the caller identity in
// the request locals.
func JWTAuth(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		caller, err := tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// CallerFrom returns the authenticated caller of the request.
func CallerFrom(c *fiber.Ctx) (domain.Caller, bool) {
	caller, ok := c.Locals(callerKey).(domain.Caller)
	return caller, ok && caller.PartyID != ""
}

// WithCaller stores caller in the request locals. Tests use it in place of
// JWTAuth.
func WithCaller(caller domain.Caller) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(callerKey, caller)
		return c.Next()
	}
}

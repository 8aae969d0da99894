package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

// RequireRoles ensures the caller's role is one of the allowed roles. It must
// run after JWTAuth.
func RequireRoles(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "caller missing")
		}
		for _, r := range roles {
			if caller.Role == r {
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusForbidden, "access denied")
	}
}

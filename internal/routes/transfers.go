package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
	"github.com/mfs-core/mfs_ledger/internal/transfer"
)

// RegisterTransferRoutes wires the five transfer endpoints, each restricted to
// the role that may initiate it. idempotency may be nil.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, idempotency fiber.Handler) {
	group := r.Group("/transfers")
	if idempotency != nil {
		group.Use(idempotency)
	}
	admin := middleware.RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin)
	agent := middleware.RequireRoles(domain.RoleAgent)
	user := middleware.RequireRoles(domain.RoleUser)

	group.Post("/add-money", admin, h.AddMoney)
	group.Post("/withdraw", agent, h.Withdraw)
	group.Post("/send-money", user, h.SendMoney)
	group.Post("/cash-in", agent, h.CashIn)
	group.Post("/cash-out", user, h.CashOut)
}

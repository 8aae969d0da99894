package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
	"github.com/mfs-core/mfs_ledger/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Me)
	r.Get("/wallets/:walletId", h.Get)
	r.Patch("/wallets/:walletId/status", middleware.RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin), h.SetStatus)
}

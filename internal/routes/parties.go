package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
	"github.com/mfs-core/mfs_ledger/internal/onboarding"
	"github.com/mfs-core/mfs_ledger/internal/party"
)

// RegisterPartyRoutes wires profile and party administration endpoints.
func RegisterPartyRoutes(r fiber.Router, h *party.Handler, onboard *onboarding.Handler) {
	r.Get("/me", h.Me)

	admin := r.Group("/parties", middleware.RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin))
	admin.Patch("/:partyId/approval", h.SetApproval)
	admin.Patch("/:partyId/status", h.SetStatus)
	admin.Patch("/:partyId/verify", h.Verify)
	admin.Delete("/:partyId", h.Delete)
	admin.Post("/:partyId/wallet", onboard.EnsureWallet)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
	"github.com/mfs-core/mfs_ledger/internal/reporting"
)

// RegisterReportingRoutes wires transaction history and commission reports.
func RegisterReportingRoutes(r fiber.Router, h *reporting.Handler) {
	r.Get("/transactions/me", h.MyTransactions)
	r.Get("/transactions", middleware.RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin), h.AllTransactions)

	commissions := r.Group("/commissions", middleware.RequireRoles(domain.RoleAgent, domain.RoleAdmin, domain.RoleSuperAdmin))
	commissions.Get("/summary", h.CommissionSummary)
	commissions.Get("/transactions", h.CommissionTransactions)
}

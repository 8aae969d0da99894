package reporting

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MyTransactions returns the caller's own history.
func (h *Handler) MyTransactions(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "caller missing")
	}
	q, err := ParseQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.MyTransactions(c.UserContext(), caller, q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// AllTransactions returns the full log. Admin only.
func (h *Handler) AllTransactions(c *fiber.Ctx) error {
	q, err := ParseQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.AllTransactions(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// CommissionSummary returns the agent summary for agents and the operator
// summary for admins.
func (h *Handler) CommissionSummary(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "caller missing")
	}
	switch caller.Role {
	case domain.RoleAgent:
		summary, err := h.service.AgentSummary(c.UserContext(), caller.PartyID)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	case domain.RoleSuperAdmin, domain.RoleAdmin:
		summary, err := h.service.OperatorSummary(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
	return fiber.NewError(http.StatusForbidden, "access denied")
}

// CommissionTransactions lists commission-bearing entries visible to the caller.
func (h *Handler) CommissionTransactions(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "caller missing")
	}
	q, err := ParseQuery(c)
	if err != nil {
		return err
	}
	switch caller.Role {
	case domain.RoleAgent:
		page, err := h.service.AgentCommissions(c.UserContext(), caller.PartyID, q)
		if err != nil {
			return err
		}
		return c.JSON(page)
	case domain.RoleSuperAdmin, domain.RoleAdmin:
		page, err := h.service.OperatorCommissions(c.UserContext(), q)
		if err != nil {
			return err
		}
		return c.JSON(page)
	}
	return fiber.NewError(http.StatusForbidden, "access denied")
}

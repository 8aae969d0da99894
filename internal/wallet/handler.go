package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type statusRequest struct {
	Status domain.WalletStatus `json:"status"`
}

// Me returns the wallet of the authenticated caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	w, err := h.service.GetByOwner(c.UserContext(), caller.PartyID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(w)
}

// Get returns a wallet. Only its owner and admins may read it.
func (h *Handler) Get(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return err
	}
	if w.OwnerID != caller.PartyID && caller.Role != domain.RoleAdmin && caller.Role != domain.RoleSuperAdmin {
		return fiber.NewError(http.StatusForbidden, "not owner of wallet")
	}
	return c.Status(http.StatusOK).JSON(w)
}

// SetStatus blocks or reactivates a wallet.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.SetStatus(c.UserContext(), c.Params("walletId"), req.Status)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(w)
}

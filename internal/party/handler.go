package party

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
)

// Handler exposes party profile and onboarding administration endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a party HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// View is the public projection of a party.
type View struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Phone           string             `json:"phone"`
	Email           string             `json:"email,omitempty"`
	Role            domain.Role        `json:"role"`
	Status          domain.PartyStatus `json:"status"`
	Verified        bool               `json:"verified"`
	Approval        domain.Approval    `json:"approval,omitempty"`
	CommissionTotal int64              `json:"commission_total"`
	WalletID        string             `json:"wallet_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Response renders a party without its credentials.
func Response(p domain.Party) View {
	return View{
		ID:              p.ID,
		Name:            p.Name,
		Phone:           p.Phone,
		Email:           p.Email,
		Role:            p.Role,
		Status:          p.Status,
		Verified:        p.Verified,
		Approval:        p.Approval,
		CommissionTotal: p.CommissionTotal,
		WalletID:        p.WalletID,
		CreatedAt:       p.CreatedAt,
	}
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	p, err := h.service.Get(c.UserContext(), caller.PartyID)
	if err != nil {
		return err
	}
	return c.JSON(Response(p))
}

type approvalRequest struct {
	Approval domain.Approval `json:"approval"`
}

// SetApproval approves, rejects or suspends an agent.
func (h *Handler) SetApproval(c *fiber.Ctx) error {
	var req approvalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.service.SetApproval(c.UserContext(), c.Params("partyId"), req.Approval)
	if err != nil {
		return err
	}
	return c.JSON(Response(p))
}

type statusRequest struct {
	Status domain.PartyStatus `json:"status"`
}

// SetStatus changes the activity status of a party.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.service.SetStatus(c.UserContext(), c.Params("partyId"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(Response(p))
}

type verifyRequest struct {
	Verified bool `json:"verified"`
}

// Verify records the identity verification outcome of a party.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.service.SetVerified(c.UserContext(), c.Params("partyId"), req.Verified)
	if err != nil {
		return err
	}
	return c.JSON(Response(p))
}

// Delete soft-deletes a party.
func (h *Handler) Delete(c *fiber.Ctx) error {
	p, err := h.service.Delete(c.UserContext(), c.Params("partyId"))
	if err != nil {
		return err
	}
	return c.JSON(Response(p))
}

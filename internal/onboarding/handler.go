package onboarding

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/party"
)

// Handler exposes self-service registration.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name  string      `json:"name"`
	Phone string      `json:"phone"`
	Email string      `json:"email"`
	PIN   string      `json:"pin"`
	Role  domain.Role `json:"role"`
}

// Register onboards a user or an agent. Agents await approval.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Role == "" {
		req.Role = domain.RoleUser
	}
	if req.Role != domain.RoleUser && req.Role != domain.RoleAgent {
		return domain.Validation("onboarding.Register", "only users and agents can self-register")
	}
	acct, err := h.service.Register(c.UserContext(), party.RegisterInput{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		PIN:   req.PIN,
		Role:  req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(acct)
}

// EnsureWallet lets an admin finish provisioning of a party without a wallet.
func (h *Handler) EnsureWallet(c *fiber.Ctx) error {
	acct, err := h.service.EnsureWallet(c.UserContext(), c.Params("partyId"))
	if err != nil {
		return err
	}
	return c.JSON(acct)
}

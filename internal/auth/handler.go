package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/party"
)

// Handler exposes the login endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

// Login validates credentials and returns an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.Login(c.UserContext(), req.Phone, req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, party.ErrInvalidCredentials):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, party.ErrInactive):
			return fiber.NewError(http.StatusForbidden, err.Error())
		default:
			return err
		}
	}
	return c.Status(http.StatusOK).JSON(session)
}

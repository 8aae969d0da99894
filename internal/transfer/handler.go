package transfer

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/middleware"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Phone  string `json:"phone"`
	Amount int64  `json:"amount"`
}

func (h *Handler) handle(t domain.EntryType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := middleware.CallerFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		var req transferRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		res, err := h.service.Execute(c.UserContext(), Request{
			Type:              t,
			Caller:            caller,
			CounterpartyPhone: req.Phone,
			Amount:            req.Amount,
		})
		if err != nil {
			return err
		}
		return c.Status(http.StatusCreated).JSON(res)
	}
}

// AddMoney handles admin to agent float top-ups.
func (h *Handler) AddMoney(c *fiber.Ctx) error { return h.handle(domain.EntryAddMoney)(c) }

// Withdraw handles agent to admin float returns.
func (h *Handler) Withdraw(c *fiber.Ctx) error { return h.handle(domain.EntryWithdraw)(c) }

// SendMoney handles user to user transfers.
func (h *Handler) SendMoney(c *fiber.Ctx) error { return h.handle(domain.EntrySendMoney)(c) }

// CashIn handles agent to user deposits.
func (h *Handler) CashIn(c *fiber.Ctx) error { return h.handle(domain.EntryCashIn)(c) }

// CashOut handles user to agent withdrawals.
func (h *Handler) CashOut(c *fiber.Ctx) error { return h.handle(domain.EntryCashOut)(c) }

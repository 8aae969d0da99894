package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:          http.StatusBadRequest,
	domain.KindPartyNotEligible:    http.StatusUnprocessableEntity,
	domain.KindInsufficientBalance: http.StatusConflict,
	domain.KindTransferFailed:      http.StatusInternalServerError,
	domain.KindNotFound:            http.StatusNotFound,
}

// ErrorHandler renders every error returned by a handler as
// {"error":{"code","message"}}. Domain errors map by kind, fiber errors keep
// their status and anything else is an opaque 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(status).JSON(body)
	}
}

func render(err error) (int, errorBody) {
	var de *domain.Error
	if errors.As(err, &de) {
		status, ok := kindStatus[de.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		msg := de.Message
		if de.Kind == domain.KindTransferFailed {
			msg = "transfer failed"
		}
		return status, errorBody{Error: errorDetail{Code: string(de.Kind), Message: msg}}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, errorBody{Error: errorDetail{Code: codeFor(fe.Code), Message: fe.Message}}
	}
	return http.StatusInternalServerError, errorBody{Error: errorDetail{Code: "INTERNAL", Message: "internal server error"}}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(domain.KindValidation)
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return string(domain.KindNotFound)
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL"
	}
	return "ERROR"
}

package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, conflict, unprocessable, internal_error, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

func errUnprocessable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnprocessableEntity, "unprocessable", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// errFromDomain maps machine and geometry errors onto HTTP statuses.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrDegenerateGeometry):
		return errUnprocessable(c, err.Error())
	case errors.Is(err, domain.ErrNotDrawing):
		return errConflict(c, "drawing is not active; start a drawing session first")
	case errors.Is(err, domain.ErrInvalidEndpoint),
		errors.Is(err, domain.ErrUnsupportedGeometry),
		errors.Is(err, domain.ErrUnknownEvent):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotConfigured),
		errors.Is(err, domain.ErrMachineStopped),
		errors.Is(err, context.DeadlineExceeded):
		return errUnavailable(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}

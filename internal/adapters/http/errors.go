package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/usecases"
	"github.com/samirrijal/zonemap/internal/core/viewport"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, location_not_found, internal_error, etc.
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

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// classify maps use case errors onto a status and an error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrLocationNotFound):
		return fiber.StatusNotFound, "location_not_found"
	case errors.Is(err, usecases.ErrViewportNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, usecases.ErrInvalidLanguage),
		errors.Is(err, usecases.ErrInvalidViewportID),
		errors.Is(err, viewport.ErrMalformedTarget):
		return fiber.StatusBadRequest, "bad_request"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

// errFromDomain writes the API error for a use case error.
func errFromDomain(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	if status == fiber.StatusInternalServerError {
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
	return newError(c, status, code, err.Error())
}

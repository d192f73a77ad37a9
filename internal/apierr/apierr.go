package apierr

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Stable machine-readable failure kinds returned to API clients.
const (
	KindInsufficientFunds  = "insufficient_funds"
	KindWalletInactive     = "wallet_inactive"
	KindWalletNotFound     = "wallet_not_found"
	KindOutOfStock         = "out_of_stock"
	KindInvalidTransition  = "invalid_transition"
	KindDuplicateReference = "duplicate_reference"
	KindBusy               = "busy"
	KindValidation         = "validation_error"
	KindNotFound           = "not_found"
	KindUnauthorized       = "unauthorized"
	KindForbidden          = "forbidden"
	KindInternal           = "internal"
)

// Error couples an HTTP status with a stable kind and a human-readable message.
type Error struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// New builds an API error.
func New(status int, kind, message string) *Error {
	return &Error{Status: status, Kind: kind, Message: message}
}

// Validation builds a 422 validation error.
func Validation(message string) *Error {
	return New(http.StatusUnprocessableEntity, KindValidation, message)
}

// Handler is the fiber error handler converting errors into the JSON error shape.
// Unknown errors are reported as internal without leaking detail.
func Handler(c *fiber.Ctx, err error) error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Status).JSON(fiber.Map{"error": apiErr})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := KindInternal
		switch fiberErr.Code {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			kind = KindValidation
		case http.StatusUnauthorized:
			kind = KindUnauthorized
		case http.StatusForbidden:
			kind = KindForbidden
		case http.StatusNotFound:
			kind = KindNotFound
		case http.StatusConflict:
			kind = KindDuplicateReference
		case http.StatusTooManyRequests:
			kind = KindBusy
		}
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": &Error{Kind: kind, Message: fiberErr.Message}})
	}

	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": &Error{Kind: KindInternal, Message: "internal error"},
	})
}

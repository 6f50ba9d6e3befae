package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Recoverable conditions surfaced to the transport layer. Storage
// connectivity failures are not part of this taxonomy and propagate
// as-is.
var (
	ErrNotFound         = errors.New("not found")
	ErrNotPublished     = errors.New("tour has no published version")
	ErrAlreadyCompleted = errors.New("session already completed")
	ErrConflict         = errors.New("conflicting concurrent write, refetch and retry")
	ErrInvalid          = errors.New("invalid input")
)

// StatusCode maps a taxonomy error to an HTTP status. Unknown errors
// map to 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrNotPublished), errors.Is(err, ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrAlreadyCompleted):
		return fiber.StatusConflict
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// Fiber wraps a service error into a fiber error with the mapped status.
func Fiber(err error) error {
	return fiber.NewError(StatusCode(err), err.Error())
}

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"agromart/internal/apperr"
)

// statusFor maps ledger error types to HTTP status codes.
func statusFor(err error) int {
	var (
		validationErr  *apperr.ValidationError
		authzErr       *apperr.AuthorizationError
		invalidCodeErr *apperr.InvalidCodeError
		storageErr     *apperr.StorageError
	)
	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest
	case errors.As(err, &authzErr):
		return fiber.StatusForbidden
	case errors.As(err, &invalidCodeErr):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &storageErr):
		if storageErr.Retryable {
			return fiber.StatusServiceUnavailable
		}
		return fiber.StatusInternalServerError
	}
	return fiber.StatusInternalServerError
}

// fail renders err with its mapped status code.
func fail(c *fiber.Ctx, message string, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// currentUsername reads the username set by the auth middleware.
func currentUsername(c *fiber.Ctx) string {
	username, _ := c.Locals("username").(string)
	return username
}

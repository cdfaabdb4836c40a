package handlers

import (
	"errors"

	"student-performance/internal/service"
	"student-performance/pkg/auth"
	"student-performance/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

// getIdentity returns the caller set by the auth middleware, or nil.
func getIdentity(c *fiber.Ctx) *auth.Identity {
	identity, _ := c.Locals(middleware.IdentityKey).(*auth.Identity)
	return identity
}

// validationFailed answers with 400 when err is a *service.ValidationError.
func validationFailed(c *fiber.Ctx, err error) (bool, error) {
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		return false, nil
	}
	return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "Validation failed",
		"fields": verr.Fields,
	})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

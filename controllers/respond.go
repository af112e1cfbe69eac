package controllers

import (
	"errors"

	"github.com/geraldineferreras/backend-sub004/services"
	"github.com/gofiber/fiber/v2"
)

// serviceError maps service layer errors onto HTTP responses. Migration
// failures carry the per-student failure list so callers can see exactly
// which students blocked the operation.
func serviceError(c *fiber.Ctx, err error) error {
	var migErr *services.MigrationError
	if errors.As(err, &migErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":    "Migration failed",
			"failures": migErr.Failures,
		})
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrLocked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrIncompleteSchedule):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNothingToUpdate):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}

package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

// Message sends a plain {message} JSON body with the given status.
func Message(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}

func NotFound(c *fiber.Ctx, message string) error {
	return Message(c, fiber.StatusNotFound, message)
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Message(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Message(c, fiber.StatusUnauthorized, message)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Message(c, fiber.StatusForbidden, message)
}

func InternalServerError(c *fiber.Ctx, message string) error {
	return Message(c, fiber.StatusInternalServerError, message)
}

// StoreError maps persistence errors to the HTTP contract: missing
// documents become 404s, anything else a generic 500 with fallback text.
func StoreError(c *fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, store.ErrNotFound) {
		return NotFound(c, err.Error())
	}
	return InternalServerError(c, fallback)
}

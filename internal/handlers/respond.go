package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"tiemcom/internal/apperrors"
)

var validate = validator.New()

// respond writes the success envelope shared by all endpoints.
func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

// respondError maps a domain error one-to-one onto an HTTP response.
func respondError(c *fiber.Ctx, err error) error {
	status := apperrors.StatusOf(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": err.Error(),
		"status":  status,
	})
}

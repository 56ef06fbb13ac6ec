package handlers

import "github.com/gofiber/fiber/v2"

// success wraps payloads in the shared response envelope.
func success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-flowsteps/core"
)

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	rich := core.MapFlowError(err)
	status := rich.Code
	if status <= 0 {
		status = fiber.StatusInternalServerError
	}
	if s != nil && s.logger != nil && status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", rich.Error())
	}

	payload := fiber.Map{
		"code":    rich.TextCode,
		"message": rich.Message,
	}
	if len(rich.Metadata) > 0 {
		payload["metadata"] = rich.Metadata
	}
	if validation := rich.AllValidationErrors(); len(validation) > 0 {
		fields := make([]fiber.Map, 0, len(validation))
		for _, fieldErr := range validation {
			fields = append(fields, fiber.Map{
				"field":   fieldErr.Field,
				"message": fieldErr.Message,
			})
		}
		payload["fields"] = fields
	}
	return c.Status(status).JSON(fiber.Map{"error": payload})
}

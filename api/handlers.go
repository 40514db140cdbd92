package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/llm"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// errorJSON writes an llm.ErrorResponse with the given status.
func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
}

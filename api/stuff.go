package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/prompt"
)

// StuffResponse is the body of /example/ai/stuff.
type StuffResponse struct {
	Text string `json:"text"`
}

// handleStuff answers a question through the QA template, optionally stuffing
// the reference document into the prompt context.
// Query parameters:
//   - message (optional): the question, defaults to prompt.DefaultQuestion
//   - stuffit (optional, default false): include the reference document
func (s *Server) handleStuff(c *fiber.Ctx) error {
	message := c.Query("message", prompt.DefaultQuestion)

	stuff := false
	if raw := c.Query("stuffit"); raw != "" {
		parsed, ok := parseFlag(raw)
		if !ok {
			return errorJSON(c, fiber.StatusBadRequest, "stuffit must be a boolean")
		}
		stuff = parsed
	}

	rendered, err := s.config.Stuffer.Render(message, stuff)
	if err != nil {
		s.logger.Error("failed to render prompt", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to render prompt")
	}

	text, err := s.config.Client.Prompt(rendered).Call(c.UserContext())
	if err != nil {
		s.config.Metrics.ObserveProviderError(s.config.Client.ProviderName())
		s.logger.Error("stuff completion failed", "stuffit", stuff, "error", err)
		return errorJSON(c, fiber.StatusBadGateway, err.Error())
	}

	s.logger.Debug("stuff completion",
		"stuffit", stuff,
		"prompt_len", len(rendered),
		"answer_len", len(text),
	)

	return c.JSON(StuffResponse{Text: text})
}

// parseFlag accepts true/false, on/off, yes/no and 1/0 in any case.
func parseFlag(raw string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "yes", "1":
		return true, true
	case "false", "off", "no", "0":
		return false, true
	default:
		return false, false
	}
}

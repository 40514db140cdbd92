package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/chat"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/memory"
)

// HistoryResponse is the stored memory of one conversation.
type HistoryResponse struct {
	Backend        string `json:"backend"`
	ConversationID string `json:"chat_id"`
	// Turns in chronological order (oldest first)
	Turns []llm.Message `json:"turns"`
	Count int           `json:"count"`
}

// handleGetHistory returns the last limit turns of a conversation.
// Query parameters:
//   - chatId (required): the conversation
//   - limit (optional, default 100): number of turns to return
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	backend := c.Params("backend")
	store, err := s.backendStore(backend)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}

	chatID := c.Query("chatId")
	if chatID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "chatId parameter is required")
	}

	limit := chat.DefaultRetrieveSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return errorJSON(c, fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	turns, err := store.Retrieve(c.UserContext(), chatID, limit)
	if err != nil {
		s.logger.Error("failed to retrieve history", "backend", backend, "chat_id", chatID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to retrieve history")
	}
	if turns == nil {
		turns = []llm.Message{}
	}

	return c.JSON(HistoryResponse{
		Backend:        backend,
		ConversationID: chatID,
		Turns:          turns,
		Count:          len(turns),
	})
}

// handleClearHistory deletes every stored turn of a conversation.
func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	backend := c.Params("backend")
	store, err := s.backendStore(backend)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}

	chatID := c.Query("chatId")
	if chatID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "chatId parameter is required")
	}

	if err := store.Clear(c.UserContext(), chatID); err != nil {
		s.logger.Error("failed to clear history", "backend", backend, "chat_id", chatID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to clear history")
	}

	s.logger.Info("history cleared", "backend", backend, "chat_id", chatID)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) backendStore(backend string) (memory.Store, error) {
	factory, ok := s.config.Backends[backend]
	if !ok {
		return nil, &memory.UnknownBackendError{Backend: backend}
	}
	return factory(), nil
}

package api

import (
	"context"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/papercomputeco/recall/pkg/chat"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/advisor"
)

// handleChatMemory streams a completion for the prompt and chatId query
// parameters with the named backend attached as conversation memory.
// The backend is fixed per route.
func (s *Server) handleChatMemory(backend string, stores memory.Factory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Query values alias the request buffer, which fasthttp reuses while
		// the stream goroutine still holds them.
		text := utils.CopyString(c.Query("prompt"))
		if text == "" {
			return errorJSON(c, fiber.StatusBadRequest, "prompt parameter is required")
		}

		chatID := utils.CopyString(c.Query("chatId"))
		if chatID == "" {
			return errorJSON(c, fiber.StatusBadRequest, "chatId parameter is required")
		}

		adv, err := advisor.New(advisor.Config{
			Store:   stores(),
			Backend: backend,
			Events:  s.config.Events,
			Metrics: s.config.Metrics,
			Logger:  s.logger,
		})
		if err != nil {
			s.logger.Error("failed to create memory advisor", "backend", backend, "error", err)
			return errorJSON(c, fiber.StatusInternalServerError, "memory backend unavailable")
		}

		// fasthttp recycles the request context once the handler returns,
		// but the body keeps streaming after that.
		ctx, cancel := context.WithCancel(context.Background())

		stream, err := s.config.Client.
			Prompt(text).
			Advisors(adv).
			Params(chat.NewMemoryParams(chatID)).
			Stream(ctx)
		if err != nil {
			cancel()
			s.logger.Error("failed to start chat stream", "backend", backend, "chat_id", chatID, "error", err)
			return errorJSON(c, fiber.StatusBadGateway, err.Error())
		}

		// Wait for the first fragment so a provider that fails up front
		// still gets a proper status code.
		first, ok := <-stream.Content()
		if !ok {
			cancel()
			if err := stream.Err(); err != nil {
				s.config.Metrics.ObserveProviderError(s.config.Client.ProviderName())
				s.logger.Error("chat stream failed", "backend", backend, "chat_id", chatID, "error", err)
				return errorJSON(c, fiber.StatusBadGateway, err.Error())
			}
			c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
			return c.SendString("")
		}

		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")

		// pw.Write blocks until fasthttp has flushed the previous chunk, so a
		// slow client holds back the provider.
		pr, pw := io.Pipe()
		go s.pipeStream(stream, first, pw, cancel, backend, chatID)

		c.Context().Response.SetBodyStream(pr, -1)
		return nil
	}
}

// pipeStream writes stream fragments to pw until the stream ends or the
// client goes away.
func (s *Server) pipeStream(stream *chat.Stream, first string, pw *io.PipeWriter, cancel context.CancelFunc, backend, chatID string) {
	defer cancel()
	defer stream.Close()

	write := func(fragment string) error {
		if _, err := io.WriteString(pw, fragment); err != nil {
			return err
		}
		s.config.Metrics.ObserveFragment(backend)
		return nil
	}

	if err := write(first); err != nil {
		s.logger.Debug("client went away", "backend", backend, "chat_id", chatID, "error", err)
		pw.CloseWithError(err)
		return
	}

	for fragment := range stream.Content() {
		if err := write(fragment); err != nil {
			s.logger.Debug("client went away", "backend", backend, "chat_id", chatID, "error", err)
			pw.CloseWithError(err)
			return
		}
	}

	if err := stream.Err(); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.config.Metrics.ObserveProviderError(s.config.Client.ProviderName())
		}
		s.logger.Warn("chat stream ended with error", "backend", backend, "chat_id", chatID, "error", err)
		pw.CloseWithError(err)
		return
	}

	pw.Close()
}

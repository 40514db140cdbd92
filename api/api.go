package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/llm"
)

// Server is the recall HTTP server.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Client == nil {
		return nil, errors.New("chat client is required")
	}
	if config.Stuffer == nil {
		return nil, errors.New("prompt stuffer is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(llm.ErrorResponse{Error: err.Error()})
		},
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Use(s.observeRequest)

	app.Get("/ping", s.handlePing)

	for _, name := range backendOrder {
		factory, ok := config.Backends[name]
		if !ok {
			continue
		}
		app.Get("/chat-memory/"+name, s.handleChatMemory(name, factory))
	}
	app.Get("/chat-memory/:backend/history", s.handleGetHistory)
	app.Delete("/chat-memory/:backend/history", s.handleClearHistory)

	app.Get("/example/ai/stuff", s.handleStuff)

	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}
	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"backends", s.Backends(),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Backends lists the registered chat-memory backends in route order.
func (s *Server) Backends() []string {
	names := make([]string, 0, len(s.config.Backends))
	for _, name := range backendOrder {
		if _, ok := s.config.Backends[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (s *Server) observeRequest(c *fiber.Ctx) error {
	err := c.Next()
	if s.config.Metrics == nil {
		return err
	}

	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	s.config.Metrics.ObserveRequest(c.Route().Path, status)
	return err
}

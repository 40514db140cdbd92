// Package servecmder provides the serve command that runs the recall HTTP server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/recall/api"
	mcpapi "github.com/papercomputeco/recall/api/mcp"
	"github.com/papercomputeco/recall/pkg/chat"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/credentials"
	"github.com/papercomputeco/recall/pkg/llm/provider"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/prompt"
)

type ServeCommander struct {
	flags struct {
		listen         string
		provider       string
		modelBaseURL   string
		model          string
		sqlitePath     string
		redisAddr      string
		postgresDSN    string
		templatePath   string
		documentPath   string
		eventsProvider string
		kafkaBrokers   string
		eventsTopic    string
		eventsWorkers  uint
	}

	cfg       *config.Config
	configDir string
	debug     bool
	logger    *slog.Logger
}

const serveLongDesc string = `Run the recall HTTP server.

Endpoints:
  GET    /chat-memory/in-memory        Stream a chat completion with in-process memory
  GET    /chat-memory/sqlite           Stream a chat completion with SQLite memory
  GET    /chat-memory/redis            Stream a chat completion with Redis memory
  GET    /chat-memory/postgres         Same, with PostgreSQL memory (when --postgres-dsn is set)
  GET    /chat-memory/:backend/history Inspect a conversation's stored turns
  DELETE /chat-memory/:backend/history Forget a conversation
  GET    /example/ai/stuff             Answer a question through the QA prompt template
  GET    /metrics                      Prometheus metrics
  ANY    /mcp                          MCP server with the memory_recall tool

Settings come from flags, RECALL_* environment variables and config.toml, in
that order of precedence. The OpenAI key falls back to "recall auth openai" and
then OPENAI_API_KEY when model.api_key is unset.`

const serveShortDesc string = "Run the recall server"

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagProvider,
	config.FlagModelBaseURL,
	config.FlagModel,
	config.FlagSQLite,
	config.FlagRedisAddr,
	config.FlagPostgresDSN,
	config.FlagTemplate,
	config.FlagDocument,
	config.FlagEventsProvider,
	config.FlagKafkaBrokers,
	config.FlagEventsTopic,
	config.FlagEventsWorkers,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	var v *viper.Viper

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			var err error
			v, err = config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagProvider, &f.provider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagModelBaseURL, &f.modelBaseURL)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagModel, &f.model)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRedisAddr, &f.redisAddr)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPostgresDSN, &f.postgresDSN)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagTemplate, &f.templatePath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagDocument, &f.documentPath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsProvider, &f.eventsProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagKafkaBrokers, &f.kafkaBrokers)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsTopic, &f.eventsTopic)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagEventsWorkers, &f.eventsWorkers)

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := c.cfg

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(cfg.Server.LogJSON),
		logger.WithPretty(true),
	)

	m := metrics.New(metrics.DefaultNamespace)

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	apiKey, err := creds.ResolveAPIKey(cfg.Model.Provider, cfg.Model.APIKey)
	if err != nil {
		return fmt.Errorf("resolving API key: %w", err)
	}

	prov, err := provider.New(provider.Config{
		Provider: cfg.Model.Provider,
		BaseURL:  cfg.Model.BaseURL,
		APIKey:   apiKey,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	client, err := chat.NewClient(chat.Config{
		Provider: prov,
		Model:    cfg.Model.Name,
		Logger:   logger.Component(c.logger, "chat"),
	})
	if err != nil {
		return fmt.Errorf("creating chat client: %w", err)
	}

	stuffer, err := prompt.Load(cfg.Prompt.TemplatePath, cfg.Prompt.DocumentPath)
	if err != nil {
		return err
	}

	backends, closeBackends, err := c.openBackends(ctx)
	if err != nil {
		return err
	}
	defer closeBackends()

	pool, err := c.startEvents(m)
	if err != nil {
		return err
	}
	defer pool.Close()

	mcpServer, err := mcpapi.NewServer(mcpapi.Config{
		Backends: backends,
		Logger:   logger.Component(c.logger, "mcp"),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.Server.Listen,
		Client:     client,
		Stuffer:    stuffer,
		Backends:   backends,
		Events:     pool,
		Metrics:    m,
		MCPHandler: mcpServer.Handler(),
	}, logger.Component(c.logger, "api"))
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting recall",
		"listen", cfg.Server.Listen,
		"provider", prov.Name(),
		"model", cfg.Model.Name,
		"backends", server.Backends(),
		"events", cfg.Events.Provider,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
	}

	if err := server.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("server shutdown", "error", err)
	}
	return nil
}

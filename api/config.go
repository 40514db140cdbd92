// Package api provides the recall HTTP server: the chat-memory endpoint group,
// the prompt-stuffing endpoint and memory history inspection.
package api

import (
	"net/http"

	"github.com/papercomputeco/recall/pkg/chat"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/advisor"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/prompt"
)

// Memory backend route names. Each is served under /chat-memory/<name>.
const (
	BackendInMemory = "in-memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// backendOrder is the order backends are registered and listed in.
var backendOrder = []string{BackendInMemory, BackendSQLite, BackendRedis, BackendPostgres}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Client issues completions for every endpoint.
	Client *chat.Client

	// Stuffer renders the QA prompt for /example/ai/stuff.
	Stuffer *prompt.Stuffer

	// Backends maps a backend route name to the store factory serving it.
	// Only backends present here get a /chat-memory route.
	Backends map[string]memory.Factory

	// Events receives turn events from memory advisors (optional).
	Events advisor.Enqueuer

	// Metrics is optional. When set, /metrics is served.
	Metrics *metrics.Metrics

	// MCPHandler is mounted on /mcp when set.
	MCPHandler http.Handler
}

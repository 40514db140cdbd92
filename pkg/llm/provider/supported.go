package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/papercomputeco/recall/pkg/llm/provider/ollama"
	"github.com/papercomputeco/recall/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	OpenAI = "openai"
	Ollama = "ollama"
)

// clientTimeout bounds a single upstream call, streaming included.
const clientTimeout = 5 * time.Minute

// Config selects and configures a provider.
type Config struct {
	// Provider type, one of SupportedProviders()
	Provider string

	// BaseURL of the upstream API (e.g., "http://localhost:11434")
	BaseURL string

	// APIKey for providers that require one
	APIKey string
}

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{OpenAI, Ollama}
}

// New creates a new Provider instance for the given configuration.
// Returns an error if the provider type is not recognized.
func New(cfg Config) (Provider, error) {
	httpClient := &http.Client{Timeout: clientTimeout}

	switch cfg.Provider {
	case OpenAI:
		return openai.New(cfg.BaseURL, cfg.APIKey, httpClient), nil
	case Ollama:
		return ollama.New(cfg.BaseURL, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Provider, SupportedProviders())
	}
}

// Package credentials stores model provider API keys outside config.toml, so
// the config can be shared without leaking secrets.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// envVars maps the providers that need an API key to the environment variable
// consulted when no key is configured or stored.
var envVars = map[string]string{
	"openai": "OPENAI_API_KEY",
}

// Manager reads and writes credentials.toml in a .recall/ directory.
type Manager struct {
	path string
}

// NewManager creates a Manager for the .recall/ directory resolved from
// override (see dotdir.Manager.Target).
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{path: filepath.Join(dir, credentialsFile)}, nil
}

// Path returns the credentials file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the credentials file. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{
		Version:   currentVersion,
		Providers: make(map[string]ProviderEntry),
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return creds, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderEntry)
	}

	return creds, nil
}

// Save writes the credentials file readable by the owner only.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetKey stores the API key of a provider.
func (m *Manager) SetKey(provider, key string) error {
	if !IsSupportedProvider(provider) {
		return &UnsupportedProviderError{Provider: provider}
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Providers[provider] = ProviderEntry{APIKey: key}
	return m.Save(creds)
}

// GetKey returns the stored API key of a provider, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

// RemoveKey deletes the stored key of a provider.
func (m *Manager) RemoveKey(provider string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Providers, provider)
	return m.Save(creds)
}

// ListProviders returns the providers with a stored key, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}
	slices.Sort(providers)

	return providers, nil
}

// ResolveAPIKey picks the key used to talk to provider. An explicitly
// configured key wins, then the stored key, then the provider's environment
// variable.
func (m *Manager) ResolveAPIKey(provider, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	provider = strings.ToLower(provider)
	if !IsSupportedProvider(provider) {
		return "", nil
	}

	stored, err := m.GetKey(provider)
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}

	return os.Getenv(EnvVarForProvider(provider)), nil
}

// UnsupportedProviderError is returned for providers that take no API key.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %q (supported: %s)",
		e.Provider, strings.Join(SupportedProviders(), ", "))
}

// EnvVarForProvider returns the environment variable holding a provider's
// key, or "" for providers that take none.
func EnvVarForProvider(provider string) string {
	return envVars[provider]
}

// SupportedProviders returns the providers that take an API key.
func SupportedProviders() []string {
	providers := make([]string, 0, len(envVars))
	for name := range envVars {
		providers = append(providers, name)
	}
	slices.Sort(providers)
	return providers
}

// IsSupportedProvider reports whether provider takes an API key.
func IsSupportedProvider(provider string) bool {
	_, ok := envVars[provider]
	return ok
}

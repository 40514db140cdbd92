package credentials

// Credentials is the content of .recall/credentials.toml.
type Credentials struct {
	Version   int                      `toml:"version"`
	Providers map[string]ProviderEntry `toml:"providers"`
}

// ProviderEntry holds the stored key of one model provider.
type ProviderEntry struct {
	APIKey string `toml:"api_key"`
}

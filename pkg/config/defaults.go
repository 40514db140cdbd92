package config

const (
	defaultListen = ":8080"

	defaultModelProvider = "ollama"
	defaultModelBaseURL  = "http://localhost:11434"
	defaultModelName     = "llama3.2"

	defaultSQLitePath = "recall.db"
	defaultRedisAddr  = "localhost:6379"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "recall.turns"
	defaultEventsWorkers  = 3

	defaultClientAPITarget = "http://localhost:8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Model: ModelConfig{
			Provider: defaultModelProvider,
			BaseURL:  defaultModelBaseURL,
			Name:     defaultModelName,
		},
		Memory: MemoryConfig{
			SQLitePath: defaultSQLitePath,
			RedisAddr:  defaultRedisAddr,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
			Workers:  defaultEventsWorkers,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}

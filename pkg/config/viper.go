package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the RECALL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RECALL_SERVER_LISTEN, RECALL_MODEL_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: RECALL_SERVER_LISTEN, RECALL_MEMORY_REDIS_ADDR, etc.
	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the resolved configuration.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen:  v.GetString("server.listen"),
			LogJSON: v.GetBool("server.log_json"),
		},
		Model: ModelConfig{
			Provider: v.GetString("model.provider"),
			BaseURL:  v.GetString("model.base_url"),
			Name:     v.GetString("model.name"),
			APIKey:   v.GetString("model.api_key"),
		},
		Memory: MemoryConfig{
			InMemoryShared: v.GetBool("memory.inmemory_shared"),
			SQLitePath:     v.GetString("memory.sqlite_path"),
			RedisAddr:      v.GetString("memory.redis_addr"),
			RedisPassword:  v.GetString("memory.redis_password"),
			RedisDB:        v.GetInt("memory.redis_db"),
			PostgresDSN:    v.GetString("memory.postgres_dsn"),
		},
		Prompt: PromptConfig{
			TemplatePath: v.GetString("prompt.template_path"),
			DocumentPath: v.GetString("prompt.document_path"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
			Workers:  v.GetUint("events.workers"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
// Every key is registered, even empty ones, so AutomaticEnv can resolve it.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range ValidConfigKeys() {
		v.SetDefault(key, configKeys[key].get(d))
	}

	// Typed defaults where the string form would lose meaning.
	v.SetDefault("server.log_json", d.Server.LogJSON)
	v.SetDefault("memory.inmemory_shared", d.Memory.InMemoryShared)
	v.SetDefault("memory.redis_db", d.Memory.RedisDB)
	v.SetDefault("events.workers", d.Events.Workers)
}

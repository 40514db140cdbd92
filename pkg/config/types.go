package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent recall configuration stored as config.toml
// in the .recall/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Server  ServerConfig `toml:"server"`
	Model   ModelConfig  `toml:"model"`
	Memory  MemoryConfig `toml:"memory"`
	Prompt  PromptConfig `toml:"prompt"`
	Events  EventsConfig `toml:"events"`
	Client  ClientConfig `toml:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen  string `toml:"listen,omitempty"`
	LogJSON bool   `toml:"log_json,omitempty"`
}

// ModelConfig selects the chat model provider.
type ModelConfig struct {
	Provider string `toml:"provider,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
	Name     string `toml:"name,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// MemoryConfig holds the chat-memory backend settings.
type MemoryConfig struct {
	// InMemoryShared makes /chat-memory/in-memory share one store across
	// requests instead of starting fresh every time.
	InMemoryShared bool `toml:"inmemory_shared,omitempty"`

	SQLitePath    string `toml:"sqlite_path,omitempty"`
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`

	// PostgresDSN enables /chat-memory/postgres when set.
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// PromptConfig overrides the embedded QA template and reference document.
type PromptConfig struct {
	TemplatePath string `toml:"template_path,omitempty"`
	DocumentPath string `toml:"document_path,omitempty"`
}

// EventsConfig holds turn event publishing settings.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
	Workers  uint   `toml:"workers,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// recall server (e.g. recall chat, recall ask). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.log_json": boolKey("server.log_json", func(c *Config) *bool { return &c.Server.LogJSON }),
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.base_url": {
		get: func(c *Config) string { return c.Model.BaseURL },
		set: func(c *Config, v string) error { c.Model.BaseURL = v; return nil },
	},
	"model.name": {
		get: func(c *Config) string { return c.Model.Name },
		set: func(c *Config, v string) error { c.Model.Name = v; return nil },
	},
	"model.api_key": {
		get: func(c *Config) string { return c.Model.APIKey },
		set: func(c *Config, v string) error { c.Model.APIKey = v; return nil },
	},
	"memory.inmemory_shared": boolKey("memory.inmemory_shared", func(c *Config) *bool { return &c.Memory.InMemoryShared }),
	"memory.sqlite_path": {
		get: func(c *Config) string { return c.Memory.SQLitePath },
		set: func(c *Config, v string) error { c.Memory.SQLitePath = v; return nil },
	},
	"memory.redis_addr": {
		get: func(c *Config) string { return c.Memory.RedisAddr },
		set: func(c *Config, v string) error { c.Memory.RedisAddr = v; return nil },
	},
	"memory.redis_password": {
		get: func(c *Config) string { return c.Memory.RedisPassword },
		set: func(c *Config, v string) error { c.Memory.RedisPassword = v; return nil },
	},
	"memory.redis_db": {
		get: func(c *Config) string { return strconv.Itoa(c.Memory.RedisDB) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for memory.redis_db: %w", err)
			}
			c.Memory.RedisDB = n
			return nil
		},
	},
	"memory.postgres_dsn": {
		get: func(c *Config) string { return c.Memory.PostgresDSN },
		set: func(c *Config, v string) error { c.Memory.PostgresDSN = v; return nil },
	},
	"prompt.template_path": {
		get: func(c *Config) string { return c.Prompt.TemplatePath },
		set: func(c *Config, v string) error { c.Prompt.TemplatePath = v; return nil },
	},
	"prompt.document_path": {
		get: func(c *Config) string { return c.Prompt.DocumentPath },
		set: func(c *Config, v string) error { c.Prompt.DocumentPath = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"events.workers": {
		get: func(c *Config) string {
			if c.Events.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Events.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for events.workers: %w", err)
			}
			c.Events.Workers = uint(n)
			return nil
		},
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
}

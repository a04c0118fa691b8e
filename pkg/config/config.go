// Package config provides configuration loading for the disparo server.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petrijr/disparo/pkg/genai"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Storage   StorageConfig             `yaml:"storage"`
	Worker    WorkerConfig              `yaml:"worker"`
	Log       LogConfig                 `yaml:"log"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
}

// StorageConfig selects where runs and the task queue live.
type StorageConfig struct {
	// Backend is one of "memory", "sqlite", "postgres", "redis".
	Backend string `yaml:"backend"`
	// SQLitePath is the database file for the sqlite backend. The auth
	// tables always live in SQLite, so this applies to every backend.
	SQLitePath string `yaml:"sqlite_path"`
	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`
	// RedisAddr is the host:port for the redis backend.
	RedisAddr string `yaml:"redis_addr"`
	// RedisPrefix namespaces all redis keys.
	RedisPrefix string `yaml:"redis_prefix"`
}

// WorkerConfig configures the background workers.
type WorkerConfig struct {
	// Concurrency is how many worker goroutines process events.
	Concurrency int `yaml:"concurrency"`
	// MaxAttempts caps task-level retries, including the first attempt.
	MaxAttempts int `yaml:"max_attempts"`
	// RetryBackoff is the delay before a failed task is retried.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	// PollInterval is how often the durable queue backends check for
	// newly eligible tasks. Ignored by the memory backend.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}

// ProviderConfig configures one AI provider. Keys in Config.Providers
// are "openai", "anthropic", and "googleai".
type ProviderConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Default returns a Config with sensible defaults: in-memory storage,
// two workers, info logging.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			Backend:     "memory",
			SQLitePath:  "disparo.db",
			RedisPrefix: "disparo:",
		},
		Worker: WorkerConfig{
			Concurrency:  2,
			MaxAttempts:  1,
			RetryBackoff: time.Second,
			PollInterval: 20 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
		Providers: map[string]ProviderConfig{
			genai.ProviderGoogle:    {Model: "gemini-1.5-flash"},
			genai.ProviderOpenAI:    {Model: "gpt-4o-mini"},
			genai.ProviderAnthropic: {Model: "claude-3-5-haiku-latest"},
		},
	}
}

// Load reads the YAML file at path (when path is non-empty), applies it
// over the defaults, and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides secrets and addresses from the environment, so
// API keys never need to live in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DISPARO_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DISPARO_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("DISPARO_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("DISPARO_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("DISPARO_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}

	for name, env := range map[string]string{
		genai.ProviderOpenAI:    "DISPARO_OPENAI_API_KEY",
		genai.ProviderAnthropic: "DISPARO_ANTHROPIC_API_KEY",
		genai.ProviderGoogle:    "DISPARO_GOOGLEAI_API_KEY",
	} {
		if v := os.Getenv(env); v != "" {
			if c.Providers == nil {
				c.Providers = make(map[string]ProviderConfig)
			}
			p := c.Providers[name]
			p.APIKey = v
			c.Providers[name] = p
		}
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("storage.backend must be one of memory, sqlite, postgres, redis; got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		return fmt.Errorf("storage.redis_addr is required for the redis backend")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive")
	}
	return nil
}

// Provider returns the genai provider config for the given provider
// name, filling in the Provider field.
func (c *Config) Provider(name string) genai.ProviderConfig {
	p := c.Providers[name]
	return genai.ProviderConfig{
		Provider: name,
		Model:    p.Model,
		APIKey:   p.APIKey,
		BaseURL:  p.BaseURL,
	}
}

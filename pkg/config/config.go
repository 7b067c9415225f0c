package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for warelens-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables override YAML values. Secrets (API keys,
// connection strings with credentials) must only come from the environment.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// AllowedOriginsStr is a comma-separated list of CORS origins for the
	// browser UI (the profiling stream is consumed cross-origin).
	AllowedOriginsStr string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"http://localhost:5173,http://127.0.0.1:5173"`

	// AllowedOrigins is parsed from AllowedOriginsStr (not from config file).
	AllowedOrigins []string `yaml:"-"`

	// Warehouse holds the analytical warehouse connection settings.
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// LLM holds the text-generation service settings.
	LLM LLMConfig `yaml:"llm"`

	// Sessions holds the session store (MongoDB) settings.
	Sessions SessionStoreConfig `yaml:"sessions"`
}

// WarehouseConfig holds Snowflake connection configuration.
type WarehouseConfig struct {
	// DSN is the full gosnowflake DSN, e.g. "user:pass@account/db/schema".
	// Secret - environment only.
	DSN string `yaml:"-" env:"WAREHOUSE_DSN"`

	MaxOpenConns int `yaml:"max_open_conns" env:"WAREHOUSE_MAX_OPEN_CONNS" env-default:"5"`
	MaxIdleConns int `yaml:"max_idle_conns" env:"WAREHOUSE_MAX_IDLE_CONNS" env-default:"2"`

	// QueryTimeoutSeconds bounds a single statement execution.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"WAREHOUSE_QUERY_TIMEOUT_SECONDS" env-default:"120"`
}

// IsConfigured reports whether a warehouse connection can be opened.
func (c *WarehouseConfig) IsConfigured() bool {
	return c.DSN != ""
}

// LLMConfig holds text-generation service configuration.
// Provider selects between the Anthropic client and an OpenAI-compatible
// endpoint; the default mirrors the service the reports were designed for.
type LLMConfig struct {
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"anthropic"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"claude-3-5-sonnet-20241022"`
	// Endpoint is used by the openai provider for self-hosted gateways.
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	// APIKey is secret - environment only.
	APIKey string `yaml:"-" env:"LLM_API_KEY"`
}

// IsConfigured reports whether a text-generation client can be created.
func (c *LLMConfig) IsConfigured() bool {
	return c.APIKey != "" || c.Endpoint != ""
}

// SessionStoreConfig holds MongoDB session store configuration.
// The engine degrades gracefully when the store is absent: analysis still
// runs, progress is simply not persisted.
type SessionStoreConfig struct {
	// URI is secret - environment only (may embed credentials).
	URI      string `yaml:"-" env:"SESSIONS_MONGO_URI"`
	Database string `yaml:"database" env:"SESSIONS_MONGO_DATABASE" env-default:"warelens"`
}

// IsConfigured reports whether the session store should be connected.
func (c *SessionStoreConfig) IsConfigured() bool {
	return c.URI != ""
}

// Load reads configuration from config.yaml (if present) and the
// environment, then validates and derives computed fields.
func Load(version string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	cfg.Version = version
	cfg.AllowedOrigins = splitAndTrim(cfg.AllowedOriginsStr)

	if cfg.LLM.Provider != "anthropic" && cfg.LLM.Provider != "openai" {
		return nil, fmt.Errorf("unsupported llm provider %q (want anthropic or openai)", cfg.LLM.Provider)
	}

	return &cfg, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

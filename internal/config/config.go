package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the journal service.
// Environment variables are parsed from the JOURNAL_BACKEND_ prefix.
type Config struct {
	// Build target selects high-level environment: local, cloud-dev, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"cloud-dev"`

	// Derived or override driver
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`

	// Conversation memory
	RetentionTTL        time.Duration `envconfig:"RETENTION_TTL" default:"2160h"`
	ContextWindowBudget int           `envconfig:"CONTEXT_WINDOW_BUDGET" default:"20"`
	SweepInterval       time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`

	// Generation client
	GenAIBaseURL         string        `envconfig:"GENAI_BASE_URL" default:"https://api.openai.com/v1"`
	GenAIAPIKey          string        `envconfig:"GENAI_API_KEY" default:""`
	GenAIModel           string        `envconfig:"GENAI_MODEL" default:"gpt-4o-mini"`
	GenerationTimeout    time.Duration `envconfig:"GENERATION_TIMEOUT" default:"30s"`
	GenerationRetryLimit int           `envconfig:"GENERATION_RETRY_LIMIT" default:"3"`

	// Mood reports
	DefaultReportFrequency string        `envconfig:"REPORT_FREQUENCY" default:"WEEKLY"`
	SchedulerInterval      time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"15m"`

	// Embedding / Search Configuration
	SearchEnabled bool    `envconfig:"SEARCH_ENABLED" default:"true"`
	EmbedProvider string  `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string  `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	SearchAlpha   float32 `envconfig:"SEARCH_ALPHA" default:"0.6"`
	WeaviateURL   string  `envconfig:"WEAVIATE_URL" default:"weaviate:8080"`

	// Health checks
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`

	// Startup bootstrap checks (store connectivity, embedder warmup)
	BootstrapTimeoutSeconds int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"30"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud-dev", "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.RetentionTTL <= 0 {
		return fmt.Errorf("RETENTION_TTL must be positive, got %s", c.RetentionTTL)
	}
	if c.ContextWindowBudget <= 0 {
		return fmt.Errorf("CONTEXT_WINDOW_BUDGET must be positive, got %d", c.ContextWindowBudget)
	}
	if c.GenerationRetryLimit < 1 {
		return fmt.Errorf("GENERATION_RETRY_LIMIT must be at least 1, got %d", c.GenerationRetryLimit)
	}

	switch c.DefaultReportFrequency {
	case "WEEKLY", "BIWEEKLY", "MONTHLY":
	default:
		return fmt.Errorf("unsupported REPORT_FREQUENCY: %s", c.DefaultReportFrequency)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Environment variables should be prefixed with JOURNAL_BACKEND_
// Example: JOURNAL_BACKEND_HTTP_PORT, JOURNAL_BACKEND_RETENTION_TTL
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("JOURNAL_BACKEND", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Dur("retention_ttl", cfg.RetentionTTL).
		Int("context_window_budget", cfg.ContextWindowBudget).
		Dur("generation_timeout", cfg.GenerationTimeout).
		Int("generation_retry_limit", cfg.GenerationRetryLimit).
		Str("genai_model", cfg.GenAIModel).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Str("weaviate_url", cfg.WeaviateURL).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment: EnvTesting,

		BuildTarget: "local",
		DBDriver:    "auto",
		HTTPPort:    8080,

		RetentionTTL:        90 * 24 * time.Hour,
		ContextWindowBudget: 20,
		SweepInterval:       time.Hour,

		GenAIBaseURL:         "http://localhost:11434/v1",
		GenAIModel:           "test-model",
		GenerationTimeout:    5 * time.Second,
		GenerationRetryLimit: 3,

		DefaultReportFrequency: "WEEKLY",
		SchedulerInterval:      15 * time.Minute,

		SearchEnabled: false,
		EmbedProvider: "ollama",
		EmbedModel:    "mxbai-embed-large",
		SearchAlpha:   0.6,
		WeaviateURL:   "localhost:8082",

		HealthIntervalSeconds:     30,
		HealthProbeTimeoutSeconds: 2,
		BootstrapTimeoutSeconds:   5,
	}
	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Package config loads tutoring runtime configuration from a YAML file
// with environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/tutorgraph-go/tutor"
)

// Provider names accepted in ProviderConfig.Name.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderMock      = "mock"
)

// Store backends accepted in StoreConfig.Backend.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

// ProviderConfig selects the chat model backend.
type ProviderConfig struct {
	// Name is one of openai, anthropic, google, or mock.
	Name string `yaml:"name"`

	// Model overrides the provider's default model identifier.
	Model string `yaml:"model"`

	// APIKey is usually left empty in the file and supplied via the
	// provider's conventional environment variable.
	APIKey string `yaml:"api_key"`
}

// SearchConfig selects the web search backend.
type SearchConfig struct {
	// APIKey is the Tavily key; TAVILY_API_KEY overrides it. When empty,
	// a canned mock client is used instead of live search.
	APIKey string `yaml:"api_key"`

	// MaxResults bounds each research query. Default 5.
	MaxResults int `yaml:"max_results"`
}

// StoreConfig selects checkpoint persistence.
type StoreConfig struct {
	// Backend is one of memory, sqlite, or mysql. Default memory.
	Backend string `yaml:"backend"`

	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`

	// DSN is the connection string for the mysql backend.
	// TUTOR_MYSQL_DSN overrides it.
	DSN string `yaml:"dsn"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(v)
	return nil
}

// EngineConfig maps onto tutor.Options.
type EngineConfig struct {
	MaxSteps           int    `yaml:"max_steps"`
	MaxResearchRetries int    `yaml:"max_research_retries"`
	Fallback           string `yaml:"fallback"`
	StreamBuffer       int    `yaml:"stream_buffer"`

	Retry struct {
		MaxAttempts int      `yaml:"max_attempts"`
		BaseDelay   Duration `yaml:"base_delay"`
		MaxDelay    Duration `yaml:"max_delay"`
	} `yaml:"retry"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default info.
	Level string `yaml:"level"`

	// Development switches to the human-readable console encoder.
	Development bool `yaml:"development"`
}

// Config is the root of the YAML configuration file.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Search   SearchConfig   `yaml:"search"`
	Store    StoreConfig    `yaml:"store"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the configuration used when no file is present: the
// OpenAI provider, mock search, and an in-memory store.
func Default() Config {
	var c Config
	c.Provider.Name = ProviderOpenAI
	c.Store.Backend = StoreMemory
	c.Search.MaxResults = 5
	c.Log.Level = "info"
	c.applyEnv()
	return c
}

// Load reads and parses the YAML file at path, applies environment
// overrides, and validates the result. A missing file is not an error;
// defaults are returned.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, c.Validate()
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyEnv lets conventional environment variables override the file so
// secrets never need to be committed.
func (c *Config) applyEnv() {
	switch c.Provider.Name {
	case ProviderAnthropic:
		overlay(&c.Provider.APIKey, "ANTHROPIC_API_KEY")
	case ProviderGoogle:
		overlay(&c.Provider.APIKey, "GOOGLE_API_KEY")
	default:
		overlay(&c.Provider.APIKey, "OPENAI_API_KEY")
	}
	overlay(&c.Search.APIKey, "TAVILY_API_KEY")
	overlay(&c.Store.DSN, "TUTOR_MYSQL_DSN")
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports configuration the builders cannot act on.
func (c Config) Validate() error {
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}

	switch c.Store.Backend {
	case StoreMemory, StoreMySQL:
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite backend requires store.path")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == StoreMySQL && c.Store.DSN == "" {
		return fmt.Errorf("mysql backend requires store.dsn or TUTOR_MYSQL_DSN")
	}

	if c.Engine.Fallback != "" {
		switch tutor.FallbackPolicy(c.Engine.Fallback) {
		case tutor.FallbackBestEffort, tutor.FallbackFail:
		default:
			return fmt.Errorf("unknown fallback policy %q", c.Engine.Fallback)
		}
	}
	return nil
}

// Options converts the engine section into tutor.Options, leaving zero
// values for the engine defaults to fill.
func (c Config) Options() tutor.Options {
	return tutor.Options{
		MaxSteps:           c.Engine.MaxSteps,
		MaxResearchRetries: c.Engine.MaxResearchRetries,
		Fallback:           tutor.FallbackPolicy(c.Engine.Fallback),
		StreamBuffer:       c.Engine.StreamBuffer,
		Retry: tutor.RetryPolicy{
			MaxAttempts: c.Engine.Retry.MaxAttempts,
			BaseDelay:   time.Duration(c.Engine.Retry.BaseDelay),
			MaxDelay:    time.Duration(c.Engine.Retry.MaxDelay),
		},
	}
}

// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"LEXEVAL_HOST" yaml:"host"`
	Port int    `envconfig:"LEXEVAL_PORT" yaml:"port"`

	// Scoring configuration
	Scoring ScoringConfig `yaml:"scoring"`

	// Run storage configuration
	Store StoreConfig `yaml:"store"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`
}

// ScoringConfig holds the thresholds shared by all scorers. It is passed
// into scoring calls as an immutable value so runs stay reproducible.
type ScoringConfig struct {
	KValues          []int   `envconfig:"LEXEVAL_K_VALUES" yaml:"k_values"`
	SpanOverlap      float64 `envconfig:"LEXEVAL_SPAN_OVERLAP" yaml:"span_overlap"`
	NumericTolerance float64 `envconfig:"LEXEVAL_NUMERIC_TOLERANCE" yaml:"numeric_tolerance"`
	CalibrationBins  int     `envconfig:"LEXEVAL_CALIBRATION_BINS" yaml:"calibration_bins"`
	Workers          int     `envconfig:"LEXEVAL_WORKERS" yaml:"workers"`
}

// StoreConfig holds evaluation run storage settings.
type StoreConfig struct {
	Type     string `envconfig:"LEXEVAL_STORE_TYPE" yaml:"type"`
	Path     string `envconfig:"LEXEVAL_STORE_PATH" yaml:"path"`
	RedisURL string `envconfig:"LEXEVAL_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"LEXEVAL_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"LEXEVAL_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"LEXEVAL_KAFKA_GROUP" yaml:"kafka_group"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"LEXEVAL_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"LEXEVAL_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	APIKey    string `envconfig:"LEXEVAL_API_KEY" yaml:"api_key"`
	RateLimit int    `envconfig:"LEXEVAL_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Scoring = ScoringConfig{
		KValues:          []int{1, 3, 5, 10},
		SpanOverlap:      0.5,
		NumericTolerance: 0.01,
		CalibrationBins:  10,
		Workers:          4,
	}

	cfg.Store = StoreConfig{
		Type:     "memory",
		Path:     "./data/runs",
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit: 0,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	// Scoring validation
	if len(c.Scoring.KValues) == 0 {
		errs = append(errs, "k_values must not be empty")
	}
	for _, k := range c.Scoring.KValues {
		if k < 1 {
			errs = append(errs, fmt.Sprintf("k value must be positive, got %d", k))
			break
		}
	}

	if c.Scoring.SpanOverlap <= 0 || c.Scoring.SpanOverlap > 1 {
		errs = append(errs, "span_overlap must be in (0, 1]")
	}

	if c.Scoring.NumericTolerance < 0 || c.Scoring.NumericTolerance >= 1 {
		errs = append(errs, "numeric_tolerance must be in [0, 1)")
	}

	if c.Scoring.CalibrationBins < 1 {
		errs = append(errs, "calibration_bins must be positive")
	}

	if c.Scoring.Workers < 1 {
		errs = append(errs, "workers must be positive")
	}

	// Store validation
	validStoreTypes := map[string]bool{"memory": true, "file": true, "redis": true}
	if !validStoreTypes[c.Store.Type] {
		errs = append(errs, fmt.Sprintf("invalid store type: %s (must be memory, file, or redis)", c.Store.Type))
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}

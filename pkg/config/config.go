// Package config loads and validates the engine configuration.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/quarryhq/quarry/pkg/telemetry"
)

// Config is the full engine configuration.
type Config struct {
	// StorePath is the SQLite state store location.
	StorePath string `yaml:"store_path" validate:"required"`

	// Namespace prefixes every resource path in the blueprint.
	Namespace string `yaml:"namespace"`

	// MaxParallel bounds worker concurrency within an apply phase.
	MaxParallel int `yaml:"max_parallel" validate:"min=1"`

	// Logging configures the structured logger.
	Logging telemetry.LoggingConfig `yaml:"logging"`

	// Metrics configures the optional Prometheus endpoint.
	Metrics telemetry.MetricsConfig `yaml:"metrics"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		StorePath:   "quarry.db",
		MaxParallel: 4,
		Logging:     telemetry.DefaultLoggingConfig(),
		Metrics:     telemetry.DefaultMetricsConfig(),
	}
}

// Load reads a YAML configuration file over the defaults and validates the
// result. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration's struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	tserrors "github.com/suparena/transientspace/errors"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

// Config is the complete runtime configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig selects and tunes the transient storage backend.
type StorageConfig struct {
	Backend      string         `yaml:"backend" env:"TRANSIENTSPACE_BACKEND"`
	PageSize     int32          `yaml:"pageSize" env:"TRANSIENTSPACE_PAGE_SIZE"`
	MaxRetries   int            `yaml:"maxRetries" env:"TRANSIENTSPACE_MAX_RETRIES"`
	RetryBackoff time.Duration  `yaml:"retryBackoff" env:"TRANSIENTSPACE_RETRY_BACKOFF"`
	DynamoDB     DynamoDBConfig `yaml:"dynamodb"`
}

// DynamoDBConfig holds the table and credentials of the DynamoDB backend.
// The variable names match the ones used by the integration tests.
type DynamoDBConfig struct {
	Table     string `yaml:"table" env:"AWS_DDB_TABLE"`
	Region    string `yaml:"region" env:"AWS_REGION"`
	AccessKey string `yaml:"accessKey" env:"AWS_ACCESS_KEY"`
	SecretKey string `yaml:"secretKey" env:"AWS_SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"AWS_DDB_ENDPOINT"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"TRANSIENTSPACE_LOG_LEVEL"`
	Format string `yaml:"format" env:"TRANSIENTSPACE_LOG_FORMAT"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"TRANSIENTSPACE_METRICS_ENABLED"`
	Namespace string `yaml:"namespace" env:"TRANSIENTSPACE_METRICS_NAMESPACE"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:      BackendMemory,
			PageSize:     100,
			MaxRetries:   3,
			RetryBackoff: time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "transientspace",
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are skipped. With no
// arguments it reads ".env" in the working directory.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields whose environment variables are set.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the backend selection and its required settings.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.Storage.DynamoDB.Table == "" {
			return tserrors.NewValidationError("storage.dynamodb.table", "required for the dynamodb backend")
		}
	default:
		return tserrors.NewValidationError("storage.backend",
			fmt.Sprintf("unknown backend %q", c.Storage.Backend))
	}
	if c.Storage.PageSize <= 0 {
		return tserrors.NewValidationError("storage.pageSize", "must be positive")
	}
	if c.Storage.MaxRetries < 0 {
		return tserrors.NewValidationError("storage.maxRetries", "must not be negative")
	}
	return nil
}

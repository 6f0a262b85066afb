// Package config loads runtime configuration from INVENTORY_* environment
// variables. Command-line flags in cmd/server override a subset.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/warp/stock-ledger/inventory"
)

// Prefix is prepended to every variable name, e.g. INVENTORY_PORT.
const Prefix = "INVENTORY"

const (
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration for the server.
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"development"`
	Port int    `envconfig:"PORT" default:"8080"`

	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath   string `envconfig:"DB_PATH" default:"inventory.db"`
	PGDSN    string `envconfig:"PG_DSN"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT"` // console|json, empty = by Env

	References     string `envconfig:"REFERENCES" default:"permissive"`
	EmptyMovements string `envconfig:"EMPTY_MOVEMENTS" default:"allow"`
	ReportStrategy string `envconfig:"REPORT_STRATEGY" default:"exhaustive"`

	RateLimit       int           `envconfig:"RATE_LIMIT" default:"120"` // requests per minute per IP, 0 = off
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown enum values and inconsistent settings.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("config: %s_PG_DSN is required for the postgres driver", Prefix)
		}
	default:
		return fmt.Errorf("config: unknown db driver %q", c.DBDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Strategy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Policy translates the reference and empty-movement settings.
func (c *Config) Policy() (inventory.Policy, error) {
	return inventory.ParsePolicy(c.References, c.EmptyMovements)
}

// Strategy translates the report strategy setting.
func (c *Config) Strategy() (inventory.Strategy, error) {
	return inventory.ParseStrategy(c.ReportStrategy)
}

// IsProduction returns true when the server runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Package config loads ledger.yaml and LEDGER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Ledger     LedgerConfig     `yaml:"ledger"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Pagination PaginationConfig `yaml:"pagination"`
}

// LedgerConfig identifies the ledger.
type LedgerConfig struct {
	Name      string `yaml:"name"`
	ChartType string `yaml:"chart_type"`
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// PaginationConfig bounds transaction listings.
type PaginationConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// Load reads a ledger.yaml file from disk. Fields absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Resolve loads path if it exists, or the defaults otherwise, then applies
// .env and environment overrides.
func Resolve(path, envFile string) (*Config, error) {
	cfg := Default("")
	if path != "" {
		loaded, err := Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads envFile (or ./.env if present) and overrides fields from
// LEDGER_* environment variables.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("LEDGER_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LEDGER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LEDGER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LEDGER_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("LEDGER_BUSY_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LEDGER_BUSY_TIMEOUT_MS %q: %w", v, err)
		}
		c.Database.BusyTimeoutMS = ms
	}
	return nil
}

// Validate checks that required settings are present and sane.
func (c *Config) Validate() error {
	var problems []string
	if c.Database.Path == "" {
		problems = append(problems, "database.path is required")
	}
	if c.Pagination.DefaultPageSize <= 0 {
		problems = append(problems, "pagination.default_page_size must be positive")
	}
	if c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		problems = append(problems, "pagination.max_page_size must be >= default_page_size")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(name string) *Config {
	return &Config{
		Ledger: LedgerConfig{
			Name:      name,
			ChartType: "small_business",
		},
		Database: DatabaseConfig{
			Path:          "ledger.db",
			BusyTimeoutMS: 5000,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Pagination: PaginationConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}

// Package config loads the dashboard configuration from the environment,
// an optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"bike-dashboard/pkg/database"
)

// EnvPrefix prefixes every environment variable, e.g. BIKE_SERVER_PORT.
// Leaf fields use split_words so that no key falls back to an unprefixed
// name such as PATH or USER.
const EnvPrefix = "BIKE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" split_words:"true" default:"0.0.0.0"`
	Port            int             `yaml:"port" split_words:"true" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" split_words:"true" default:"30s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" split_words:"true" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true" default:"true"`
	RPS     float64 `yaml:"rps" split_words:"true" default:"50"`
	Burst   int     `yaml:"burst" split_words:"true" default:"100"`
}

// Record sources
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// DataConfig selects where the rental records come from
type DataConfig struct {
	Source        string        `yaml:"source" split_words:"true" default:"csv"`
	Path          string        `yaml:"path" split_words:"true" default:"data/all_data.csv"`
	Delimiter     string        `yaml:"delimiter" split_words:"true" default:","`
	Watch         bool          `yaml:"watch" split_words:"true" default:"false"`
	WatchDebounce time.Duration `yaml:"watch_debounce" split_words:"true" default:"500ms"`
}

// DelimiterRune returns the field delimiter as a rune.
func (d DataConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(d.Delimiter)
	return r
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `yaml:"host" split_words:"true" default:"localhost"`
	Port            int           `yaml:"port" split_words:"true" default:"5432"`
	User            string        `yaml:"user" split_words:"true" default:"postgres"`
	Password        string        `yaml:"password" split_words:"true"`
	Name            string        `yaml:"name" split_words:"true" default:"bike_dashboard"`
	SSLMode         string        `yaml:"sslmode" split_words:"true" default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true" default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true" default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" split_words:"true" default:"1m"`
}

// PoolConfig converts the settings for pkg/database.
func (d DatabaseConfig) PoolConfig() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true" default:"info"`
}

// Hourly chart orderings
const (
	HourlyOrderValue = "value"
	HourlyOrderHour  = "hour"
)

// DashboardConfig controls presentation
type DashboardConfig struct {
	Title       string `yaml:"title" split_words:"true" default:"Bike Renting Dashboard"`
	HourlyOrder string `yaml:"hourly_order" split_words:"true" default:"value"`
}

// LoadConfig reads ./.env when present, then the BIKE_* environment, then
// the YAML file named by BIKE_CONFIG_FILE. Keys set in the YAML file win.
func LoadConfig() (*Config, error) {
	return Load(".env")
}

// Load is LoadConfig with an explicit .env path. A missing .env file is not
// an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	return &cfg, nil
}

// mergeFile decodes the YAML file onto cfg. Only keys present in the file
// change.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		result = multierror.Append(result, errors.New("server timeouts must be positive"))
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst <= 0) {
		result = multierror.Append(result, errors.New("server.rate_limit rps and burst must be positive when enabled"))
	}

	switch c.Data.Source {
	case SourceCSV:
		if strings.TrimSpace(c.Data.Path) == "" {
			result = multierror.Append(result, errors.New("data.path is required for the csv source"))
		}
	case SourcePostgres:
		if c.Data.Watch {
			result = multierror.Append(result, errors.New("data.watch is only supported for the csv source"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("data.source %q must be csv or postgres", c.Data.Source))
	}
	if utf8.RuneCountInString(c.Data.Delimiter) != 1 {
		result = multierror.Append(result, fmt.Errorf("data.delimiter %q must be a single character", c.Data.Delimiter))
	}

	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		result = multierror.Append(result, errors.New("database pool sizes must not be negative"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.level %q is not a known level", c.Logging.Level))
	}

	switch c.Dashboard.HourlyOrder {
	case HourlyOrderValue, HourlyOrderHour:
	default:
		result = multierror.Append(result, fmt.Errorf("dashboard.hourly_order %q must be value or hour", c.Dashboard.HourlyOrder))
	}

	return result.ErrorOrNil()
}

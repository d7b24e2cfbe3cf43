// Package config loads settings from defaults, an optional config file and
// CASEGRID_* environment variables. Command-line flags are applied on top by
// cmd/casegrid.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// EnvPrefix prefixes every environment variable, e.g. CASEGRID_GRID_MAX_PER_PAGE.
	EnvPrefix = "CASEGRID"
)

// Config is the full application configuration.
type Config struct {
	DatabaseURL string        `mapstructure:"database_url"`
	Port        string        `mapstructure:"port"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
	RedisURL    string        `mapstructure:"redis_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	Grid        GridConfig    `mapstructure:"grid"`
	Seed        SeedConfig    `mapstructure:"seed"`
}

// GridConfig bounds listing parameters and selects mutation policies.
type GridConfig struct {
	DefaultPerPage     int    `mapstructure:"default_per_page"`
	MaxPerPage         int    `mapstructure:"max_per_page"`
	MaxOffset          int    `mapstructure:"max_offset"`
	UnknownTokens      string `mapstructure:"unknown_tokens"`
	MaintainPopulation bool   `mapstructure:"maintain_population"`
	BatchConcurrency   int    `mapstructure:"batch_concurrency"`
}

// SeedConfig configures the seed command.
type SeedConfig struct {
	Count int `mapstructure:"count"`
}

// NewViper returns a viper instance with every key defaulted and environment
// lookup enabled.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("database_url", DefaultDatabaseURL)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", 30*time.Second)

	v.SetDefault("grid.default_per_page", 10)
	v.SetDefault("grid.max_per_page", 100)
	v.SetDefault("grid.max_offset", 100_000)
	v.SetDefault("grid.unknown_tokens", "drop")
	v.SetDefault("grid.maintain_population", true)
	v.SetDefault("grid.batch_concurrency", 8)

	v.SetDefault("seed.count", 100)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads file, if given, into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	switch strings.ToLower(c.Grid.UnknownTokens) {
	case "", "drop", "reject":
	default:
		errs = append(errs, fmt.Errorf("grid.unknown_tokens must be drop or reject, got %q", c.Grid.UnknownTokens))
	}
	if c.Grid.MaxPerPage < 1 {
		errs = append(errs, fmt.Errorf("grid.max_per_page must be positive, got %d", c.Grid.MaxPerPage))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL))
	}

	return errors.Join(errs...)
}

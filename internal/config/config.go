// Package config loads the dashboard configuration. Values are layered as defaults, then an
// optional YAML file, then a .env file, then DEMANDCAST_ prefixed environment variables, with
// later layers overriding earlier ones.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix     = "DEMANDCAST"
	EnvConfigPath = "DEMANDCAST_CONFIG"

	DefaultEnvFile = ".env"
)

var (
	ErrReadConfig    = errors.New("unable to read config file")
	ErrParseConfig   = errors.New("unable to parse config")
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the complete runtime configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOG"`
	Tracing   TracingConfig   `yaml:"tracing" envconfig:"TRACING"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
}

// Addr returns the listen address of the server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DataConfig struct {
	Path string `yaml:"path" split_words:"true" validate:"required"`
}

type ForecastConfig struct {
	Confidence  float64       `yaml:"confidence" split_words:"true" validate:"gte=0,lte=1"`
	Periods     int           `yaml:"periods" split_words:"true" validate:"min=1"`
	Frequency   string        `yaml:"frequency" split_words:"true" validate:"required"`
	Timeout     time.Duration `yaml:"timeout" split_words:"true" validate:"gte=0"`
	Region      string        `yaml:"region" split_words:"true"`
	Parallelism int           `yaml:"parallelism" split_words:"true" validate:"gte=0"`
}

type SessionConfig struct {
	TTL  time.Duration `yaml:"ttl" split_words:"true" validate:"gt=0"`
	Size int           `yaml:"size" split_words:"true" validate:"min=1"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true" validate:"gt=0"`
	Burst   int     `yaml:"burst" split_words:"true" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=json text"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" split_words:"true"`
	ServiceName string `yaml:"service_name" split_words:"true" validate:"required"`
}

// Default returns the configuration used when no file or environment overrides are present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8501,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Data: DataConfig{
			Path: "./data/product_demand_data.csv",
		},
		Forecast: ForecastConfig{
			Confidence: 0.95,
			Periods:    30,
			Frequency:  "Daily",
			Timeout:    30 * time.Second,
			Region:     "US",
		},
		Session: SessionConfig{
			TTL:  30 * time.Minute,
			Size: 128,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     2,
			Burst:   4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			ServiceName: "demandcast",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; when empty the
// DEMANDCAST_CONFIG environment variable is consulted. envFiles default to .env in the
// working directory and missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	// env files never override variables already present in the environment
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w, %s, %w", ErrReadConfig, f, err)
		}
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrParseConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w, %s, %w", ErrReadConfig, path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w, %s, %w", ErrParseConfig, path, err)
	}
	return nil
}

// Validate checks value ranges of every section
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w, %w", ErrInvalidConfig, err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds settings for every service mode. Values come from the
// environment; each service only reads the sections it needs.
type Config struct {
	Database struct {
		Host     string `env:"DB_HOST" envDefault:"localhost"`
		Port     int    `env:"DB_PORT" envDefault:"5432"`
		User     string `env:"DB_USER"`
		Password string `env:"DB_PASSWORD"`
		Name     string `env:"DB_NAME" envDefault:"pizza_fulfillment"`
	}
	RabbitMQ struct {
		Host     string `env:"RABBITMQ_HOST" envDefault:"localhost"`
		Port     int    `env:"RABBITMQ_PORT" envDefault:"5672"`
		User     string `env:"RABBITMQ_USER"`
		Password string `env:"RABBITMQ_PASSWORD"`
	}
	Redis struct {
		Addr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	}
	Auth struct {
		// JWTSecret gates the HTTP command surfaces. Empty disables auth,
		// which is only acceptable for local runs and tests.
		JWTSecret string `env:"AUTH_JWT_SECRET"`
	}
	Consumer struct {
		Prefetch    int `env:"CONSUMER_PREFETCH" envDefault:"10"`
		MaxAttempts int `env:"CONSUMER_MAX_ATTEMPTS" envDefault:"5"`
	}
	Telemetry struct {
		OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	}
}

// Load parses configuration from environment variables, applies defaults,
// and validates required fields.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "DB_PORT must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "DB_USER is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "DB_PASSWORD is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "DB_NAME is required")
	}

	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "RABBITMQ_PORT must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "RABBITMQ_USER is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "RABBITMQ_PASSWORD is required")
	}

	if c.Consumer.Prefetch <= 0 {
		problems = append(problems, "CONSUMER_PREFETCH must be > 0")
	}
	if c.Consumer.MaxAttempts <= 0 {
		problems = append(problems, "CONSUMER_MAX_ATTEMPTS must be > 0")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

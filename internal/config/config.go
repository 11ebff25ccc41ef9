package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the ReviewPulse server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Classifier ClassifierConfig
	Ingest     IngestConfig
	Insights   InsightsConfig
	RateLimit  RateLimitConfig
	Kafka      KafkaConfig
}

type ServerConfig struct {
	Port     int    `env:"REVIEWPULSE_PORT" envDefault:"8080"`
	Env      string `env:"REVIEWPULSE_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"5m"`
	MigrationsDir   string        `env:"MIGRATIONS_DIR" envDefault:"migrations"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// ClassifierConfig describes the external sentiment service and how hard we
// lean on it before falling back.
type ClassifierConfig struct {
	BaseURL     string        `env:"CLASSIFIER_BASE_URL" envDefault:"http://localhost:5001"`
	PrimaryPath string        `env:"CLASSIFIER_PRIMARY_PATH" envDefault:"/predict"`
	LegacyPath  string        `env:"CLASSIFIER_LEGACY_PATH" envDefault:"/analyze"`
	Timeout     time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"10s"`
	APIKey      string        `env:"CLASSIFIER_API_KEY"`

	BreakerFailureRatio float64       `env:"CLASSIFIER_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"CLASSIFIER_BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerOpenTimeout  time.Duration `env:"CLASSIFIER_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}

type IngestConfig struct {
	Concurrency    int   `env:"INGEST_CONCURRENCY" envDefault:"4"`
	MaxUploadBytes int64 `env:"INGEST_MAX_UPLOAD_BYTES" envDefault:"10485760"`
}

type InsightsConfig struct {
	CacheTTL time.Duration `env:"INSIGHTS_CACHE_TTL" envDefault:"5m"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"reviews.classified"`
}

// Enabled reports whether review events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if !strings.HasPrefix(c.Classifier.BaseURL, "http://") && !strings.HasPrefix(c.Classifier.BaseURL, "https://") {
		return fmt.Errorf("CLASSIFIER_BASE_URL must start with http:// or https://, got %q", c.Classifier.BaseURL)
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be positive, got %s", c.Classifier.Timeout)
	}
	if c.Classifier.BreakerFailureRatio <= 0 || c.Classifier.BreakerFailureRatio > 1 {
		return fmt.Errorf("CLASSIFIER_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.Classifier.BreakerFailureRatio)
	}

	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("INGEST_CONCURRENCY must be at least 1, got %d", c.Ingest.Concurrency)
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("INGEST_MAX_UPLOAD_BYTES must be positive, got %d", c.Ingest.MaxUploadBytes)
	}

	return nil
}

// LoadDatabase reads only the database settings. Used by offline tools that
// never touch Redis or the classifier.
func LoadDatabase() (*DatabaseConfig, error) {
	cfg := &DatabaseConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

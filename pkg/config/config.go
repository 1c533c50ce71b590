// Package config loads and validates the application configuration from
// MESHWORK_* environment variables.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/meshwork-app/meshwork-api/pkg/observability"
	"github.com/meshwork-app/meshwork-api/pkg/password"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Mail   MailConfig
	Jobs   JobsConfig

	LogLevel observability.LogLevel
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string

	// Origin is the public base URL used in Location headers and mail links.
	Origin string
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration for the rate limiter.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuthConfig holds token and password-hashing configuration.
type AuthConfig struct {
	SigningSecret string
	TokenExpiry   time.Duration
	BcryptCost    int
	// HashConcurrency bounds concurrent bcrypt operations.
	HashConcurrency int
	// RateLimitPerMinute bounds credential-endpoint requests per client IP.
	RateLimitPerMinute int
}

// MailConfig holds outbound mail configuration. An empty Host selects the
// log-only mailer.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// JobsConfig holds background job configuration.
type JobsConfig struct {
	// PruneSchedule is a cron expression for the stale-connection sweep.
	PruneSchedule string
	// ConnectionMaxAge is how long an unused connection row may live.
	ConnectionMaxAge time.Duration
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("MESHWORK_HOST", "0.0.0.0"),
			Port:            getEnv("MESHWORK_PORT", "8080"),
			ReadTimeout:     getEnvDuration("MESHWORK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("MESHWORK_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("MESHWORK_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("MESHWORK_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("MESHWORK_HEALTH_PORT", "9090"),
			Origin:          getEnv("MESHWORK_ORIGIN", "http://localhost:8080"),
		},
		DB: DBConfig{
			URL:          getEnv("MESHWORK_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("MESHWORK_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("MESHWORK_POSTGRES_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:      getEnv("MESHWORK_REDIS_URL", ""),
			Password: getEnv("MESHWORK_REDIS_PASSWORD", ""),
			DB:       getEnvInt("MESHWORK_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SigningSecret:      getEnv("MESHWORK_SIGNING_SECRET", ""),
			TokenExpiry:        getEnvDuration("MESHWORK_TOKEN_EXPIRY", 24*time.Hour),
			BcryptCost:         getEnvInt("MESHWORK_BCRYPT_COST", password.DefaultCost),
			HashConcurrency:    getEnvInt("MESHWORK_HASH_CONCURRENCY", runtime.GOMAXPROCS(0)),
			RateLimitPerMinute: getEnvInt("MESHWORK_AUTH_RATE_LIMIT", 10),
		},
		Mail: MailConfig{
			Host:     getEnv("MESHWORK_SMTP_HOST", ""),
			Port:     getEnvInt("MESHWORK_SMTP_PORT", 587),
			Username: getEnv("MESHWORK_SMTP_USERNAME", ""),
			Password: getEnv("MESHWORK_SMTP_PASSWORD", ""),
			From:     getEnv("MESHWORK_MAIL_FROM", "no-reply@meshwork.app"),
		},
		Jobs: JobsConfig{
			PruneSchedule:    getEnv("MESHWORK_PRUNE_SCHEDULE", "@hourly"),
			ConnectionMaxAge: getEnvDuration("MESHWORK_CONNECTION_MAX_AGE", 24*time.Hour),
		},
		LogLevel: observability.ParseLogLevel(
			strings.ToLower(getEnv("MESHWORK_LOG_LEVEL", "info"))),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for startup-fatal mistakes.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.DB.URL == "" {
		return fmt.Errorf("MESHWORK_POSTGRES_URL is required")
	}
	if c.Auth.SigningSecret == "" {
		return fmt.Errorf("MESHWORK_SIGNING_SECRET is required")
	}
	if len(c.Auth.SigningSecret) < 32 {
		return fmt.Errorf("MESHWORK_SIGNING_SECRET must be at least 32 bytes")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("MESHWORK_BCRYPT_COST must be between 4 and 31")
	}
	if c.Auth.HashConcurrency < 1 {
		return fmt.Errorf("MESHWORK_HASH_CONCURRENCY must be positive")
	}
	return nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

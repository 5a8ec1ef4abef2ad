// Package config loads StageGate configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Database. SQLite paths and postgres:// URLs are both accepted;
	// the driver is detected from the URL.
	DatabaseURL string

	// Redis (optional). Empty disables the Redis decision store and the
	// service falls back to the in-memory store.
	RedisURL string

	// RabbitMQ (optional). Empty disables the RabbitMQ publisher and the
	// service falls back to the in-process bus.
	RabbitMQURL string

	// HTTP API
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Gate
	EvaluatorTimeout  time.Duration // per-condition evaluation budget
	DecisionFreshness time.Duration // how long a gate decision stays committable
	CacheTTLDefault   time.Duration // default TTL for cached evaluations

	// Circuit breakers
	BreakerEnabled          bool
	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxProcessorEnabled bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("STAGEGATE_ENV", "development"),
		LogLevel: getEnv("STAGEGATE_LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		HTTPAddr:         getEnv("STAGEGATE_HTTP_ADDR", "0.0.0.0:8080"),
		HTTPReadTimeout:  getDurationEnv("STAGEGATE_HTTP_READ_TIMEOUT", 15*time.Second),
		HTTPWriteTimeout: getDurationEnv("STAGEGATE_HTTP_WRITE_TIMEOUT", 15*time.Second),

		EvaluatorTimeout:  getDurationEnv("STAGEGATE_EVALUATOR_TIMEOUT", 5*time.Second),
		DecisionFreshness: getDurationEnv("STAGEGATE_DECISION_FRESHNESS", 2*time.Minute),
		CacheTTLDefault:   getDurationEnv("STAGEGATE_CACHE_TTL", 30*time.Second),

		BreakerEnabled:          getBoolEnv("STAGEGATE_BREAKER_ENABLED", true),
		BreakerFailureThreshold: uint32(getIntEnv("STAGEGATE_BREAKER_FAILURES", 5)),
		BreakerOpenTimeout:      getDurationEnv("STAGEGATE_BREAKER_TIMEOUT", 30*time.Second),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 100*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds server configuration.
type Config struct {
	Port     string
	LogLevel string

	// DatabaseURL selects the store backend: a postgres:// URL uses
	// Postgres, anything else is treated as a SQLite DSN.
	DatabaseURL string

	// RedisAddr enables the Redis event sink when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ReviewServiceURL enables the external validator hook.
	ReviewServiceURL string
	ReviewEnabled    bool
	ReviewTimeout    time.Duration
	// ReviewExpression is an optional CEL eligibility expression.
	ReviewExpression string

	// GuardrailProfile is an optional YAML threshold profile path.
	GuardrailProfile string

	// JWTSecret enables bearer auth when non-empty.
	JWTSecret string

	RateLimitRPS   int
	RateLimitBurst int

	OTLPEndpoint     string
	TelemetryEnabled bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Port:             getenv("PORT", "8080"),
		LogLevel:         getenv("LOG_LEVEL", "INFO"),
		DatabaseURL:      getenv("DATABASE_URL", "canopy.db"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getenvInt("REDIS_DB", 0),
		ReviewServiceURL: os.Getenv("REVIEW_SERVICE_URL"),
		ReviewEnabled:    os.Getenv("REVIEW_ENABLED") == "true",
		ReviewTimeout:    getenvDuration("REVIEW_TIMEOUT", 3*time.Second),
		ReviewExpression: os.Getenv("REVIEW_EXPRESSION"),
		GuardrailProfile: os.Getenv("GUARDRAIL_PROFILE"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RateLimitRPS:     getenvInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst:   getenvInt("RATE_LIMIT_BURST", 40),
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled: os.Getenv("TELEMETRY_ENABLED") == "true",
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

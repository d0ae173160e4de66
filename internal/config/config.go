// Package config collects the service settings from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is read once at startup and immutable afterwards.
type Config struct {
	ListenAddr  string
	Environment string

	DatabaseDSN string
	RedisAddr   string

	JWTSecret   string
	JWTAudience string

	GoogleProjectID       string
	GoogleLocation        string
	GoogleCredentialsFile string
	GeminiModel           string
	GeminiTemperature     float64
	GeminiMaxTokens       int
	GeminiTimeout         time.Duration
}

// Load reads the configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseDSN: getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=wastewise port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "redis:6379"),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTAudience: getEnv("JWT_AUDIENCE", ""),

		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleLocation:        getEnv("GOOGLE_LOCATION", "us-central1"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTemperature:     getEnvFloat("GEMINI_TEMPERATURE", 0.4),
		GeminiMaxTokens:       getEnvInt("GEMINI_MAX_TOKENS", 2048),
		GeminiTimeout:         getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
	}
}

// IsProduction reports whether the service runs with production error
// redaction.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// APIBaseURL is the exam backend. When empty the fixture catalog at
	// FixturePath is served instead.
	APIBaseURL  string
	APIToken    string
	APITimeout  time.Duration
	FixturePath string

	// RedisURL and DatabaseURL are optional. Without Redis, results are kept
	// in memory; without a database, the archive worker does not run.
	RedisURL    string
	ResultTTL   time.Duration
	DatabaseURL string
	MaxDBConns  int32

	// StartRatePerMinute caps new attempts per client IP. Zero disables it.
	StartRatePerMinute int

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8081"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "pretty"),
		APIBaseURL:         getEnv("API_BASE_URL", ""),
		APIToken:           getEnv("API_TOKEN", ""),
		APITimeout:         getEnvDuration("API_TIMEOUT_SECONDS", 15*time.Second, time.Second),
		FixturePath:        getEnv("FIXTURE_PATH", "./fixtures/exams.yaml"),
		RedisURL:           getEnv("REDIS_URL", ""),
		ResultTTL:          getEnvDuration("RESULT_TTL_HOURS", 7*24*time.Hour, time.Hour),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MaxDBConns:         int32(getEnvInt("MAX_DB_CONNS", 4)),
		StartRatePerMinute: getEnvInt("START_RATE_PER_MINUTE", 30),
		AllowedOrigins:     parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

// UseFixture reports whether the offline catalog replaces the REST backend.
func (c *Config) UseFixture() bool {
	return c.APIBaseURL == ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
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

// getEnvDuration reads an integer count of unit. Non-positive values fall
// back to the default.
func getEnvDuration(key string, fallback, unit time.Duration) time.Duration {
	n := getEnvInt(key, 0)
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * unit
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

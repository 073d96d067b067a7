// Package config loads runtime configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine server.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Risk   RiskConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// RiskConfig tunes the risk assessor.
type RiskConfig struct {
	// LeaveWindowDays is the forward-looking window for UPCOMING_LEAVES.
	LeaveWindowDays int
}

// Load reads configuration from environment variables, applying defaults
// where possible. A missing .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		App: AppConfig{
			Port:   getEnvAsInt("PORT", 8080),
			DBPath: getEnv("DB_PATH", "capacity.db"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS",
				"http://localhost:5173,http://localhost:8080")),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Risk: RiskConfig{
			LeaveWindowDays: getEnvAsInt("RISK_LEAVE_WINDOW_DAYS", 14),
		},
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

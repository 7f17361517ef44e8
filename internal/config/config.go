// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sakif/tasklist/internal/auth"
)

// Defaults applied when a variable is unset.
const (
	DefaultPort          = 8080
	DefaultDatabaseURL   = "data/tasklist.db"
	DefaultMongoDatabase = "tasklist"
)

// Config holds everything the server needs to start.
type Config struct {
	Port           int
	DatabaseURL    string // SQLite path, ":memory:", or a mongodb:// URI
	MongoDatabase  string
	JWTSecret      string
	AllowedOrigins []string
	LogLevel       slog.Level
}

// UsesMongo reports whether DatabaseURL points at a MongoDB deployment.
func (c *Config) UsesMongo() bool {
	return strings.HasPrefix(c.DatabaseURL, "mongodb://") ||
		strings.HasPrefix(c.DatabaseURL, "mongodb+srv://")
}

// Load reads the configuration from environment variables, applying
// defaults, and validates it.
//
//	PORT                  default 8080
//	DATABASE_URL          default data/tasklist.db
//	MONGO_DATABASE        default tasklist
//	JWT_SECRET            required, at least 16 characters
//	CORS_ALLOWED_ORIGINS  comma-separated, default *
//	LOG_LEVEL             debug, info, warn or error; default info
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", strconv.Itoa(DefaultPort)))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("config: invalid PORT %q", os.Getenv("PORT"))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Port:           port,
		DatabaseURL:    getEnv("DATABASE_URL", DefaultDatabaseURL),
		MongoDatabase:  getEnv("MONGO_DATABASE", DefaultMongoDatabase),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:       level,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks a Config built by hand (tests do this).
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if len(c.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", auth.MinSecretLength)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL must not be empty")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("config: CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	return nil
}

// getEnv returns the variable's value, or fallback if it is unset or empty.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package main is the entry point for the task-list API server.
//
// Configuration comes from the environment (see config.Load):
//
//	JWT_SECRET=$(openssl rand -hex 32) go run ./cmd/server
//	DATABASE_URL=mongodb://localhost:27017 JWT_SECRET=... go run ./cmd/server
//
// All actual logic lives in internal/; main only reads config, builds the
// logger and starts the server.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/tasklist/internal/config"
	"github.com/sakif/tasklist/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

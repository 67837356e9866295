// Package main is the entry point for the artist manager API.
//
// The main package only reads configuration, builds the logger and hands
// both to internal/server. Everything else lives under internal/.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/artist-manager/internal/config"
	"github.com/sakif/artist-manager/internal/server"
)

func main() {
	// === 1. LOAD CONFIGURATION ===
	// Defaults, then config.yaml (or $CONFIG_PATH), then environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		slog.Error("invalid logging configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	// server.New creates the database directory, opens SQLite and runs migrations.
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
}

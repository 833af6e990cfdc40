// Command pasted runs the self-hostable paste backend for sync blobs.
//
// Configuration is by environment variable:
//
//	PORT             listen port (default 8080)
//	DB_PATH          SQLite file for paste storage (default data/pasted.db)
//	BASE_URL         public base URL used in returned paste links
//	PASTED_SECRET    deletion-token signing secret, at least 16 chars (required)
//	RETENTION_HOURS  paste lifetime in hours (default 48)
//	HOURLY_QUOTA     per-IP request budget per hour (default 60)
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sakif/momentum-sync/internal/pasteserver"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	port := envInt(logger, "PORT", 8080)

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/pasted.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.Any("error", err),
		)
		os.Exit(1)
	}

	secret := os.Getenv("PASTED_SECRET")
	if secret == "" {
		logger.Error("PASTED_SECRET is required, e.g. PASTED_SECRET=$(openssl rand -hex 32)")
		os.Exit(1)
	}

	cfg := pasteserver.Config{
		Port:      port,
		DBPath:    dbPath,
		BaseURL:   os.Getenv("BASE_URL"),
		Secret:    secret,
		Retention: time.Duration(envInt(logger, "RETENTION_HOURS", 48)) * time.Hour,
		Quota:     envInt(logger, "HOURLY_QUOTA", 60),
	}

	srv, err := pasteserver.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func envInt(logger *slog.Logger, name string, fallback int) int {
	s := os.Getenv(name)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Error("invalid value", slog.String("var", name), slog.String("value", s))
		os.Exit(1)
	}
	return v
}

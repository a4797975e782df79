package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file into the process environment unless the server
// is told it runs in production.
func LoadDotEnv() {
	if os.Getenv("PREPASS_MODE") == "prod" {
		return
	}
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using process environment", "error", err)
	}
}

// NewLogger returns the process logger: readable text in dev, JSON in prod.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

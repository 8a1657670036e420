package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"dispatch/internal/config"
)

// NewLogger builds the process logger: JSON in production, console output in development.
func NewLogger(cfg config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("env", cfg.Env).
		Str("app", cfg.AppName).
		Logger()
	if cfg.Env == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC822})
	}
	return logger
}

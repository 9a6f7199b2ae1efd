package config

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// InitLogger sets up the global zerolog logger with structured JSON output.
// Level is parsed from the given string ("debug", "info", "warn", "error").
func InitLogger(level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
	return Logger
}

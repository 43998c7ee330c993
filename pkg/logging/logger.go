// Package logging configures the global zerolog logger shared by the
// page cache, the streams and the sources.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	// LevelDisabled silences all output.
	LevelDisabled LogLevel = "disabled"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLevel  = "LOG_LEVEL"
	EnvPretty = "LOG_PRETTY"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON lines.
	Pretty bool

	// Output receives the log lines. Nil means os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// ConfigFromEnv builds a Config from LOG_LEVEL and LOG_PRETTY using lookup,
// typically os.LookupEnv. Unset variables keep their defaults.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	if value, ok := lookup(EnvLevel); ok && value != "" {
		level := LogLevel(strings.ToLower(strings.TrimSpace(value)))
		if _, err := ParseLevel(level); err != nil {
			return cfg, err
		}
		cfg.Level = level
	}

	if value, ok := lookup(EnvPretty); ok && value != "" {
		pretty, err := strconv.ParseBool(value)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", EnvPretty, value, err)
		}
		cfg.Pretty = pretty
	}

	return cfg, nil
}

// Setup configures the global zerolog logger and returns it.
// Loggers derived with NewLogger afterwards write through it.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a LogLevel to a zerolog.Level.
func ParseLevel(level LogLevel) (zerolog.Level, error) {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: page traffic
//   - pages fetched, installed and evicted (page, resident)
//   - skipped requests beyond an announced page count
//   - retry backoff decisions
//
// Info: lifecycle
//   - a source reached its end (page, page_size, count)
//   - a stream finished (elements, sources)
//   - CLI startup and shutdown
//
// Warn: recoverable failures
//   - failed page fetches and prefetch runs
//   - HTTP error statuses, exhausted retries
//
// Error: failures that end a run
//   - network errors, invalid configuration
//
// Components:
//   - page-cache, batch-fetcher, stream, http-source, redis-source, pagestream (CLI)

// Package logging configures the process-wide zerolog logger for the
// ingester and hands out component loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every page, wait and flush.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs run and target progress.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.DurationFieldUnit = time.Millisecond

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name. Matching is case-insensitive and
// "warning" is accepted for warn.
func ParseLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(s)); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	case "warning":
		return LevelWarn, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels are Info.
func parseLevel(level LogLevel) zerolog.Level {
	l, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithBracket adds the bracket fields to logger.
func WithBracket(logger zerolog.Logger, b league.Bracket) zerolog.Logger {
	return logger.With().
		Str("server", string(b.Server)).
		Str("queue", string(b.Queue)).
		Str("tier", string(b.Tier)).
		Str("division", string(b.Division)).
		Logger()
}

// Log Level Guidelines:
//
// Debug: per-request detail
//   - Fetched pages (page, entries)
//   - Rate limit waits (scope, wait)
//   - Persisted batches (cache, batch, records, pending)
//
// Info: run progress
//   - Run start and completion with totals
//   - Target completion (fetched, pages, flushes, reason)
//   - Metrics server startup
//
// Warn: degraded but continuing
//   - League API error responses (status, error_class)
//   - Cache closed after an error with records pending
//   - Shared rate limit state unavailable
//
// Error: a target or the run failed
//   - Failed targets
//   - Failed batch persists
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (ingest, riot-client, batch-cache, store)
//   - server, queue, tier, division: ladder bracket
//   - page: page number, from 1
//   - fetched: entries fetched for the target so far
//   - batch: 1-based batch number within a cache
//   - wait: advisory rate limit wait
//   - error_class: client, server, rate_limit, network, decode

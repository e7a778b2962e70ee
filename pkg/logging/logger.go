// Package logging configures zerolog for the harvester. Logs are the
// diagnostic stream; the harvest report itself is written elsewhere.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
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

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
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

// Setup configures the global zerolog logger.
// The report goes to stdout, so logs default to stderr.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
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

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForRun tags logger with the harvest run identifier.
func ForRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// ParseLevel reports whether s names a supported level.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Log Level Guidelines:
//
// Debug: Per-request flow
//   - Gate admission and release
//   - Cache hit/miss per locator
//   - Outbound request start/finish
//
// Info: Run progress
//   - State transitions (fetching_collections, expanding, draining, reporting)
//   - Collection expansion results (item counts)
//   - Run summary
//
// Warn: Skipped work that does not stop the run
//   - Failed detail fetches (transport or decode)
//   - Cache errors (fallback to direct request)
//   - Metrics push failures
//
// Error: Fatal conditions
//   - Discovery or expansion failures
//   - Configuration errors
//
// Context Fields:
//   - run_id: Identifier of one harvest run
//   - component: Emitting package (harvest, client, cache, gate)
//   - operation: Remote operation (list_collections, list_items, get_detail)
//   - url: Endpoint locator being fetched
//   - status: HTTP status code
//   - error_class: Error classification (client, server, network, decode)
//   - in_flight: Permits currently held
//   - duration: Request or run duration

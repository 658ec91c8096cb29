package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by SetupLogger.
const (
	EnvLogLevel  = "PICCOLO_LOG_LEVEL"
	EnvLogFormat = "PICCOLO_LOG_FORMAT"
)

// LogLevel reads the level from PICCOLO_LOG_LEVEL.
// Accepted values: DEBUG, INFO, WARN, ERROR (any case). Default: WARN,
// so a plain CLI run prints only results.
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv(EnvLogLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// SetupLogger builds the process logger and installs it as slog's default.
//
// The handler is chosen by PICCOLO_LOG_FORMAT:
//   - "text" (default): human-readable key=value lines
//   - "json": one JSON object per line
//
// verbose forces DEBUG regardless of the environment.
func SetupLogger(w io.Writer, verbose bool) *slog.Logger {
	level := LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger := NewLogger(w, level, os.Getenv(EnvLogFormat))
	slog.SetDefault(logger)
	return logger
}

// NewLogger builds a logger without touching the environment or the default.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

type ctxKey string

const ctxLogger ctxKey = "logger"

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLogger, logger)
}

// FromContext returns the context logger, or slog's default when there is none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// WithPipeline returns a logger tagged with the pipeline name.
func WithPipeline(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("pipeline", name)
}

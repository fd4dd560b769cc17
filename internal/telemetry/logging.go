package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LogLevel reads the level from the LOG_LEVEL environment variable.
// Recognised values: DEBUG, INFO, WARN, ERROR. Defaults to INFO.
func LogLevel() slog.Level {
	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel converts a level name to a slog.Level. The empty string maps
// to INFO so unset flags and env vars behave alike.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("telemetry: unknown log level %q", name)
}

// SetupLogger initialises the process-wide logger from the LOG_LEVEL and
// LOG_FORMAT environment variables and installs it as the slog default.
//
// LOG_FORMAT selects the handler:
//   - "json" (default) for production ingestion
//   - "text" for humans during development
//
// Logs go to stderr so render output on stdout stays clean.
func SetupLogger() *slog.Logger {
	return Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Setup initialises the default logger with explicit level and format
// names, falling back to the environment when either is empty. Flags that
// override the environment funnel through here.
func Setup(level, format string) *slog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Context keys for logger propagation.
type ctxKey string

const (
	// CtxLogger keys the logger in a context.
	CtxLogger ctxKey = "logger"
)

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext extracts the logger from the context, falling back to the
// process default when none was stored.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithRenderID returns a logger tagged with a render_id.
func WithRenderID(logger *slog.Logger, renderID string) *slog.Logger {
	return logger.With("render_id", renderID)
}

// WithTemplate returns a logger tagged with a template name.
func WithTemplate(logger *slog.Logger, template string) *slog.Logger {
	return logger.With("template", template)
}

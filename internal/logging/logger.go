// Package logging configures log/slog for the API and the sheetcheck CLI and
// hands out request-scoped loggers.
//
// Loggers returned by FromContext carry chi's request id, so every line
// written while serving one upload or tax call can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey struct{}

// Setup installs the default slog logger writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w. The sheetcheck CLI writes to stderr so
// stdout stays clean for the JSON result.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithLogger stores a logger in ctx. FromContext prefers it over the default.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger for a request.
//
// When ctx carries a chi RequestID the logger includes request_id in every
// entry:
//
//	logger := logging.FromContext(r.Context())
//	logger.Info("validating upload", "rule_id", ruleID)
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		logger = slog.Default()
	}

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields returns a logger with additional structured fields.
//
//	uploadLogger := logging.WithFields(ctx,
//	    "upload_id", uploadID,
//	    "rule_id", ruleID,
//	)
//	uploadLogger.Info("upload received")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// WithContextFields returns a ctx whose logger carries args, so later
// FromContext calls in the same request include them.
func WithContextFields(ctx context.Context, args ...any) context.Context {
	base, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		base = slog.Default()
	}
	return WithLogger(ctx, base.With(args...))
}

// Package logging builds the process-wide slog.Logger, following the
// teacher's pervasive use of log/slog with structured key-value pairs
// instead of printf-style logging.
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/acme/codereviewd/pkg/config"
)

// New builds a *slog.Logger per the Log settings in cfg.
func New(cfg config.Log) *slog.Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx for later retrieval by
// FromContext, so every log line emitted while handling one inbound
// request can be correlated without threading the logger through every
// call explicitly.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID stored in ctx, or "" if none.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// FromContext returns logger with a "request_id" field populated from ctx
// when present.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return logger.With("request_id", id)
	}
	return logger
}

package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyAttemptID contextKey = "attempt_id"
	ContextKeyLogger    contextKey = "logger"
)

// WithAttemptID adds an ingestion attempt ID to the context
func WithAttemptID(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, ContextKeyAttemptID, attemptID)
}

// AttemptIDFromContext extracts the attempt ID from context
func AttemptIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyAttemptID).(string); ok {
		return id
	}
	return ""
}

// WithLogger stores a request-scoped logger in the context
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the request-scoped logger, falling back to fallback
// and then to slog.Default().
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ContextKeyLogger).(*slog.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

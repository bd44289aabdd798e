// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ThreadIDKey is the context key for the email thread being processed
	ThreadIDKey contextKey = "thread_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and thread_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if threadID, ok := ctx.Value(ThreadIDKey).(string); ok && threadID != "" {
		newLogger = newLogger.WithThreadID(threadID)
	}

	return newLogger
}

// WithThreadID returns a logger scoped to one email thread.
func (l *Logger) WithThreadID(threadID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("thread_id", threadID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// PipelineStage logs completion of one pipeline stage for a thread.
func (l *Logger) PipelineStage(stage, threadID string, durationMs float64) {
	l.Debug("pipeline_stage",
		slog.String("stage", stage),
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
	)
}

// QuoteBlocked logs a quote that failed compliance validation and was replaced.
func (l *Logger) QuoteBlocked(threadID string, missing []string) {
	l.Warn("quote_blocked",
		slog.String("thread_id", threadID),
		slog.Any("missing", missing),
	)
}

// DraftFallback logs a generative draft failure that degraded to the template.
func (l *Logger) DraftFallback(threadID string, err error) {
	l.Warn("draft_fallback",
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// MailError logs IMAP/SMTP errors at the mail boundary.
func (l *Logger) MailError(operation string, err error) {
	l.Error("mail_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

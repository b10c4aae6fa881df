// Package logger wraps slog with the application's event vocabulary.
// Development and test environments get text output at debug level,
// everything else JSON at info.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

// Context keys the HTTP middleware stores request scoped values under.
const (
	RequestIDKey      contextKey = "request_id"
	UserIDKey         contextKey = "user_id"
	OrganizationIDKey contextKey = "organization_id"
)

var contextKeys = []contextKey{RequestIDKey, UserIDKey, OrganizationIDKey}

type Logger struct {
	*slog.Logger
}

func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter builds a logger for env that writes to w.
func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") || strings.EqualFold(env, "test") {
		return &Logger{slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// Discard drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriter("test", io.Discard)
}

// WithContext attaches the request, user and organization ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var attrs []any
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{l.With(attrs...)}
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// AuthEvent logs a register or login attempt. Failures go out at warn with
// the reason.
func (l *Logger) AuthEvent(event, email string, success bool, reason string) {
	attrs := []any{
		slog.String("event", event),
		slog.String("email", email),
		slog.Bool("success", success),
	}
	if success {
		l.Info("auth_event", attrs...)
		return
	}
	l.Warn("auth_event", append(attrs, slog.String("reason", reason))...)
}

func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// IndexWriteFailed logs a secondary write that was swallowed after the
// primary mutation had already committed.
func (l *Logger) IndexWriteFailed(table, op, leadID string, err error) {
	l.Warn("secondary_write_failed",
		slog.String("table", table),
		slog.String("op", op),
		slog.String("lead_id", leadID),
		slog.String("error", err.Error()),
	)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

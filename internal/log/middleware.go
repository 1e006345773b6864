package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey is the type for context keys owned by this package.
type ContextKey string

// LoggerContextKey carries the request-scoped logger.
const LoggerContextKey ContextKey = "logger"

// Middleware stores the logger in every request's context. Handlers and
// inner middleware retrieve it with FromContext and enrich it per request.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), logger)))
		})
	}
}

// IntoContext returns a child context carrying the logger.
func IntoContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts the request logger. Requests that bypassed the
// middleware get the process default bound to the app component.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), base: slog.Default(), component: ComponentApp}
}

// StructuredLogger emits the fixed-shape lifecycle records: request
// start/end and analysis completion.
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger wraps the logger.
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart logs the start of an HTTP request.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)

	sl.logger.InfoContext(ctx, "Request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request, escalating the level
// with the status code.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.Log(ctx, level, "Request completed", fields.ToSlice()...)
}

// LogAnalysisCompleted logs a successfully installed statement analysis.
func (sl *StructuredLogger) LogAnalysisCompleted(ctx context.Context, sessionID string, fileCount, transactions int) {
	fields := NewFields().
		WithAnalysis(sessionID, fileCount, transactions).
		WithOperation(OpAnalyze)

	sl.logger.InfoContext(ctx, "Analysis completed", fields.ToSlice()...)
}

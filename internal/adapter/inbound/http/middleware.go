package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fencio-dev/guard-sub000/internal/ctxkey"
)

// withRequestContext assigns each request an id, stores an enriched logger
// on the context, and logs the request at debug level on completion.
func withRequestContext(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		reqLogger := logger.With("request_id", requestID, "path", r.URL.Path)
		ctx := context.WithValue(r.Context(), ctxkey.LoggerKey{}, reqLogger)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		reqLogger.Debug("request handled",
			"method", r.Method,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// loggerFrom returns the request-scoped logger stored by
// withRequestContext, or the fallback.
func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}

package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
)

// RequestLogger attaches a request scoped logger to the context and logs the
// start and outcome of every request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			logger.DebugContext(ctx, "request started")
			metrics := httpsnoop.CaptureMetrics(next, w, r.WithContext(ctx))

			level := slog.LevelInfo
			if metrics.Code >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "request completed",
				"status", metrics.Code,
				"bytes", metrics.Written,
				"duration", metrics.Duration,
			)
		})
	}
}

// CORS allows browser clients from the given origins. An empty list or "*"
// allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowed = append(allowed, trimmed)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}

	return handlers.CORS(
		handlers.AllowedOrigins(allowed),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "If-None-Match"}),
		handlers.ExposedHeaders([]string{"ETag"}),
	)
}

// Recover converts handler panics into 500 responses and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(panicLogger{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)
}

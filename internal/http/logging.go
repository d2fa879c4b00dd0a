package http

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/fleet-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger installed by RequestLogger so that
// handler entries carry the request id.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, fallback, "handler", handlerName, operation, attrs...)
}

// panicLogger feeds recovered panics from handlers.RecoveryHandler into slog.
type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) Println(v ...interface{}) {
	defaultLogger(l.logger).Error("recovered from panic", "panic", fmt.Sprint(v...))
}

package logging

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	opLogger atomic.Pointer[slog.Logger]
	logLevel = new(slog.LevelVar)
)

func init() {
	logLevel.Set(slog.LevelInfo)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	opLogger.Store(logger)
}

// Op returns the operational logger for runtime/infrastructure logs:
// backend creation failures, coroutine resumption errors, worker
// lifecycle transitions, pledge denials. This is separate from
// RunLogger, which logs individual script runs.
func Op() *slog.Logger {
	return opLogger.Load()
}

// SetLevel changes the log level for the operational logger.
// Valid levels: slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetLevelFromString sets the log level from a string.
// Valid values: "debug", "info", "warn", "error"
func SetLevelFromString(level string) {
	switch level {
	case "debug", "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "info", "INFO":
		logLevel.Set(slog.LevelInfo)
	case "warn", "WARN", "warning", "WARNING":
		logLevel.Set(slog.LevelWarn)
	case "error", "ERROR":
		logLevel.Set(slog.LevelError)
	}
}

// InitStructured reconfigures the operational logger's output format and
// level: format is "text" (default) or "json"; level is "debug", "info",
// "warn", or "error". Called once at CLI startup from the resolved
// config/flags.
func InitStructured(format, level string) {
	SetLevelFromString(level)

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	opLogger.Store(slog.New(handler))
}

// traceIDFromContext and spanIDFromContext are set by
// internal/observability during init to break the import cycle that
// would otherwise result from logging depending on the OTel span API
// directly just to read two string fields back out of a context.
var (
	traceIDFromContext func(context.Context) string
	spanIDFromContext  func(context.Context) string
)

// SetTraceContextExtractors wires the operational logger to whatever
// tracing backend is active, so OpWithContext can attach the current
// span's identifiers without logging importing the tracing package
// directly. internal/observability calls this once from its package init.
func SetTraceContextExtractors(traceID, spanID func(context.Context) string) {
	traceIDFromContext = traceID
	spanIDFromContext = spanID
}

// OpWithContext returns the operational logger annotated with the
// trace_id/span_id of whatever span is active on ctx, so a poll-cycle,
// worker-invocation, or thread-pool-task log line can be correlated with
// its OTel span. Returns the plain operational logger if no tracing
// backend is wired in or no span is active.
func OpWithContext(ctx context.Context) *slog.Logger {
	l := opLogger.Load()
	if traceIDFromContext == nil {
		return l
	}
	traceID := traceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	args := []any{"trace_id", traceID}
	if spanIDFromContext != nil {
		if spanID := spanIDFromContext(ctx); spanID != "" {
			args = append(args, "span_id", spanID)
		}
	}
	return l.With(args...)
}

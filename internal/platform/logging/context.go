package logging

import (
	"context"
	"log/slog"
)

type (
	loggerKey  struct{}
	cycleIDKey struct{}
)

var defaultLogger = slog.Default()

// SetDefault replaces the logger returned when a context carries none, and
// slog's own default.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, defaultLogger)
}

// FromContextOr is FromContext with a caller-chosen fallback.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return logger
		}
	}

	return fallback
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithCycleID tags the context with the id of one press-listen-respond cycle.
// The id is attached to the logger and retrievable with CycleID so outbound
// requests can carry it as a correlation header.
func WithCycleID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, cycleIDKey{}, id)
	return with(ctx, slog.String("cycle_id", id))
}

// CycleID returns the cycle id stored by WithCycleID, or "".
func CycleID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(cycleIDKey{}).(string)

	return id
}

// WithTraceID attaches the cycle span's trace id so log lines can be joined
// with exported traces.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, slog.String("trace_id", traceID))
}

// WithCommand attaches the routed command name.
func WithCommand(ctx context.Context, command string) context.Context {
	return with(ctx, slog.String("command", command))
}

func with(ctx context.Context, attr slog.Attr) context.Context {
	return WithContext(ctx, FromContext(ctx).With(attr))
}

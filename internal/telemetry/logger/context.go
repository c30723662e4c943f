package logger

import "context"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	loggerKey  contextKey = "zonemesh.logger"
	runtimeKey contextKey = "zonemesh.runtime"
	callIDKey  contextKey = "zonemesh.call_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRuntime records the name of the runtime a message came from.
func WithRuntime(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, runtimeKey, name)
}

// RuntimeFromContext returns the runtime recorded by WithRuntime.
func RuntimeFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(runtimeKey).(string); ok {
		return name
	}
	return ""
}

// WithCallID records the correlation id of a synchronous call.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey, id)
}

// CallIDFromContext returns the id recorded by WithCallID.
func CallIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(callIDKey).(string); ok {
		return id
	}
	return ""
}

// Attrs returns the context's runtime and call id as slog key/value pairs,
// omitting those not set.
func Attrs(ctx context.Context) []any {
	var attrs []any
	if name := RuntimeFromContext(ctx); name != "" {
		attrs = append(attrs, "from", name)
	}
	if id := CallIDFromContext(ctx); id != "" {
		attrs = append(attrs, "call_id", id)
	}
	return attrs
}

// L is a shorthand for FromContext that also enriches the logger with the
// runtime and call id from the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if attrs := Attrs(ctx); len(attrs) > 0 {
		l = l.With(attrs...)
	}
	return l
}

package logging

import (
	"context"
	"log/slog"
)

type objectKey struct{}

// WithObject stores the active object ID on the context so nested helpers can
// tag their log lines without threading the ID explicitly.
func WithObject(ctx context.Context, objectID string) context.Context {
	if objectID == "" {
		return ctx
	}
	return context.WithValue(ctx, objectKey{}, objectID)
}

// ObjectFrom returns the object ID carried by the context, if any.
func ObjectFrom(ctx context.Context) string {
	if v, ok := ctx.Value(objectKey{}).(string); ok {
		return v
	}
	return ""
}

// WithContext decorates the logger with attributes carried on the context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id := ObjectFrom(ctx); id != "" {
		logger = logger.With(String("object_id", id))
	}
	return logger
}

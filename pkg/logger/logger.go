// Package logger builds the process zap logger and carries it through
// context so every component logs with its own named child.
package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// New returns the process logger. Debug mode uses the development
// encoder with caller info, otherwise the production JSON encoder.
func New(debug bool) *zap.Logger {
	if debug {
		lg, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return lg
	}
	lg, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return lg
}

// With returns a context carrying lg.
func With(ctx context.Context, lg *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, lg)
}

// From extracts the logger from ctx, falling back to a nop logger so
// callers never have to nil-check.
func From(ctx context.Context) *zap.Logger {
	if lg, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return lg
	}
	return zap.NewNop()
}

// Named is shorthand for From(ctx).Named(name).
func Named(ctx context.Context, name string) *zap.Logger {
	return From(ctx).Named(name)
}

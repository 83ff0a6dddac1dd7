// Package platform carries cross-cutting run state through contexts.
package platform

import (
	"context"
	"fmt"
)

// ProgressFunc is a callback for reporting progress messages.
type ProgressFunc func(msg string)

type progressKey struct{}

// WithProgress returns a context carrying the given progress callback.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// Reportf formats a message and hands it to the progress callback in ctx.
// Without a callback (MCP mode, tests) it does nothing.
func Reportf(ctx context.Context, format string, args ...any) {
	fn, ok := ctx.Value(progressKey{}).(ProgressFunc)
	if !ok || fn == nil {
		return
	}
	fn(fmt.Sprintf(format, args...))
}

package domain

import (
	"context"
)

// Logger is the structured logging port. Implementations handle JSON
// output (Zap in production). Every method takes a context so adapters can
// pull request-scoped fields (request id, session hash) into each entry;
// fields are flat key-value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // Fatal will call os.Exit(1) after logging

	// With creates a child logger with the provided structured context fields.
	With(fields ...any) Logger
}

// NopLogger discards every entry. It backs tests and optional dependencies
// that would otherwise need nil checks.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, ...any) {}
func (NopLogger) Info(context.Context, string, ...any)  {}
func (NopLogger) Warn(context.Context, string, ...any)  {}
func (NopLogger) Error(context.Context, string, ...any) {}
func (NopLogger) Fatal(context.Context, string, ...any) {}
func (n NopLogger) With(...any) Logger                  { return n }

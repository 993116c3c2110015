package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
)

type ctxKey struct{}

// WithContext stores l in ctx for the duration of one command.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithFields replaces the context logger with one carrying fields, e.g. the
// name of the command being run.
func WithFields(ctx context.Context, fields ...Field) context.Context {
	return WithContext(ctx, FromContext(ctx).With(fields...))
}

// FromContext returns the logger stored by WithContext. Without one it
// returns a warn-level stderr logger, so close and cleanup failures reported
// after the application logger is gone still reach the operator.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return stderrLogger()
}

var (
	stderrLog  Logger
	stderrOnce sync.Once
)

func stderrLogger() Logger {
	stderrOnce.Do(func() {
		l, err := New(Config{Level: "warn", Development: true, OutputPaths: []string{"stderr"}})
		if err != nil {
			fmt.Fprintf(os.Stderr, "scan-registry: stderr logger unavailable: %v\n", err)
			l = NewNop()
		}
		stderrLog = l
	})
	return stderrLog
}

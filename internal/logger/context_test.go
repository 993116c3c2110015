package logger_test

import (
	"context"
	"testing"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
)

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()

	nop := logger.NewNop()
	ctx := logger.WithContext(context.Background(), nop)

	if got := logger.FromContext(ctx); got != nop {
		t.Errorf("FromContext returned %v, want the same logger instance %v", got, nop)
	}
}

func TestWithFields_ReplacesContextLogger(t *testing.T) {
	t.Parallel()

	base, err := logger.New(logger.Config{Level: "warn", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	ctx := logger.WithFields(logger.WithContext(context.Background(), base), logger.String("command", "sites add"))

	if got := logger.FromContext(ctx); got == base {
		t.Error("WithFields kept the original logger, want one carrying the fields")
	}
}

func TestNewNop_IsShared(t *testing.T) {
	t.Parallel()

	nop := logger.NewNop()
	if nop != logger.NewNop() {
		t.Error("NewNop returned different instances")
	}
	if nop.With(logger.String("k", "v")) != nop {
		t.Error("With on the no-op logger should return the receiver")
	}
	if err := nop.Sync(); err != nil {
		t.Errorf("Sync() = %v, want nil", err)
	}
}

func TestFromContext_NoLogger_ReturnsUsableFallback(t *testing.T) {
	t.Parallel()

	fallback := logger.FromContext(context.Background())
	if fallback == nil {
		t.Fatal("FromContext on empty context returned nil, want non-nil fallback logger")
	}

	// warn-level fallback filters Debug/Info but the calls must not panic
	fallback.Debug("debug message")
	fallback.Info("info message")
	fallback.Warn("warn message", logger.String("key", "value"))

	if again := logger.FromContext(context.Background()); again != fallback {
		t.Error("FromContext returned different fallback instances, want the same singleton")
	}
}

func TestNew_WithFieldsReturnsNewInstance(t *testing.T) {
	t.Parallel()

	base, err := logger.New(logger.Config{Level: "warn", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}

	enriched := base.With(logger.String("service", "scan-registry"))
	if enriched == base {
		t.Error("With() should create a new instance")
	}
	enriched.Info("filtered by level")
}

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	cfg := logger.Config{}
	cfg.SetDefaults()

	if cfg.Level != logger.DefaultLevel {
		t.Errorf("Level = %q, want %q", cfg.Level, logger.DefaultLevel)
	}
	if len(cfg.OutputPaths) != 1 || cfg.OutputPaths[0] != "stdout" {
		t.Errorf("OutputPaths = %v, want [stdout]", cfg.OutputPaths)
	}
}

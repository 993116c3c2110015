package testhelpers

import (
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
)

// NewTestLogger creates a debug-level JSON logger writing to stderr, or a
// no-op logger if construction fails.
func NewTestLogger() logger.Logger {
	log, err := logger.New(logger.Config{
		Level:       "debug",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logger.NewNop()
	}
	return log
}

package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/config"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
)

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	logCfg := cfg.Logging
	if cfg.Debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", "scan-registry"),
		logger.String("version", Version),
	), nil
}

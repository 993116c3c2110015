package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/config"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore/memory"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore/mongostore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/retry"
)

// SetupStore opens the configured document store. The returned close function
// is nil for the memory backend, whose indexes are created up front.
func SetupStore(ctx context.Context, cfg *config.Config, log logger.Logger) (docstore.Store, func(context.Context) error, error) {
	if cfg.Store.Backend == config.BackendMemory {
		log.Warn("Using in-memory store, data is lost on exit")
		store := memory.New()
		if err := models.EnsureIndexes(ctx, store); err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Mongo.RetryAttempts

	store, err := mongostore.Connect(ctx, mongostore.Options{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		Retry:          retryCfg,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection: %w", err)
	}
	return store, store.Close, nil
}

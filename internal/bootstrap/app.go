// Package bootstrap wires the scan-registry components from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/config"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/metrics"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/scheduler"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/sites"
)

// Version is the service version, set at build time.
var Version = "dev"

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    logger.Logger
	Store     docstore.Store
	Metrics   *metrics.Metrics
	Records   *record.Repository
	Sites     *sites.Repository
	Scheduler *scheduler.Scheduler

	closers []func(context.Context) error
}

// New builds the application from cfg. reg receives the metrics and may be nil.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	log, err := CreateLogger(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: log}

	store, closeStore, err := SetupStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app.Store = store
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	app.Metrics = metrics.New(reg)
	app.Records = record.NewRepository(store, log, app.Metrics)
	app.Sites = sites.NewRepository(store, log, app.Metrics)

	publisher, client := SetupEventPublisher(ctx, cfg, log)
	if client != nil {
		app.closers = append(app.closers, closeRedis(client))
	}
	var pub scheduler.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	app.Scheduler = scheduler.New(app.Records, pub, app.Metrics, log)

	return app, nil
}

// EnsureIndexes creates the unique and lookup indexes of every collection.
func (a *App) EnsureIndexes(ctx context.Context) error {
	if err := models.EnsureIndexes(ctx, a.Store); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	a.Logger.Info("Indexes ensured", logger.Int("collections", len(models.Indexes())))
	return nil
}

// Close releases every connection opened by New.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

func closeRedis(client *redis.Client) func(context.Context) error {
	return func(context.Context) error {
		if err := client.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
		return nil
	}
}

package bootstrap

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/config"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/events"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
)

// SetupEventPublisher creates an optional event publisher if Redis is enabled.
// Returns nil if Redis is disabled or unavailable.
func SetupEventPublisher(ctx context.Context, cfg *config.Config, log logger.Logger) (*events.Publisher, *redis.Client) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	client, err := events.NewClient(ctx, events.ClientConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis not available, events disabled", logger.Error(err))
		return nil, nil
	}

	log.Info("Event publisher initialized", logger.String("redis_address", cfg.Redis.Address))
	return events.NewPublisher(client, log), client
}

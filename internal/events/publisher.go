package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/clock"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
)

const asyncPublishTimeout = 5 * time.Second

// Publisher publishes instruction events to a Redis stream. A nil *Publisher
// publishes nothing.
type Publisher struct {
	client *redis.Client
	stream string
	clock  clock.TimeProvider
	log    logger.Logger
}

// NewPublisher creates a publisher on StreamName. Returns nil if client is nil.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{client: client, stream: StreamName, clock: clock.System(), log: log}
}

// WithClock returns a copy of p stamping events with clk.
func (p *Publisher) WithClock(clk clock.TimeProvider) *Publisher {
	if p == nil {
		return nil
	}
	cp := *p
	cp.clock = clk
	return &cp
}

// Publish appends event to the stream, filling in its ID and timestamp.
func (p *Publisher) Publish(ctx context.Context, event InstructionEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_type": string(event.EventType),
			"event":      string(payload),
		},
	})
	if publishErr := result.Err(); publishErr != nil {
		p.log.Error("Failed to publish event",
			logger.String("event_type", string(event.EventType)),
			logger.String("site_id", event.SiteID),
			logger.Error(publishErr),
		)
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	p.log.Debug("Published instruction event",
		logger.String("event_type", string(event.EventType)),
		logger.String("site_id", event.SiteID),
		logger.String("stream_id", result.Val()),
	)
	return nil
}

// PublishAsync publishes an event in the background. Errors are logged.
func (p *Publisher) PublishAsync(event InstructionEvent) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			p.log.Warn("Async publish failed",
				logger.String("event_type", string(event.EventType)),
				logger.Error(err),
			)
		}
	}()
}

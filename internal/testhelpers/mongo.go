//go:build integration

package testhelpers

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// DefaultMongoImage is the server image used by integration tests.
const DefaultMongoImage = "mongo:7.0"

// MongoContainer manages a disposable MongoDB instance.
type MongoContainer struct {
	Container *mongodb.MongoDBContainer
	URI       string
}

// StartMongo starts a MongoDB container. Stop it with Stop.
func StartMongo(ctx context.Context) (*MongoContainer, error) {
	container, err := mongodb.Run(ctx, DefaultMongoImage)
	if err != nil {
		return nil, fmt.Errorf("failed to start MongoDB container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &MongoContainer{Container: container, URI: uri}, nil
}

// Stop terminates the container.
func (m *MongoContainer) Stop(ctx context.Context) error {
	if m.Container == nil {
		return nil
	}
	return m.Container.Terminate(ctx)
}

//go:build integration

package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore/mongostore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/testhelpers"
)

func setupStore(t *testing.T) *mongostore.Store {
	t.Helper()

	ctx := context.Background()
	container, err := testhelpers.StartMongo(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Stop(context.Background()) })

	store, err := mongostore.Connect(ctx, mongostore.Options{
		URI:            container.URI,
		Database:       "scan_registry_test",
		ConnectTimeout: 10 * time.Second,
	}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestStore_Integration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureIndexes(ctx, "sites", []docstore.Index{{Field: "url", Unique: true}}))

	t.Run("duplicate url maps to ErrDuplicateKey", func(t *testing.T) {
		first, err := bson.Marshal(bson.D{{Key: "_id", Value: bson.NewObjectID()}, {Key: "url", Value: "https://a.com"}})
		require.NoError(t, err)
		second, err := bson.Marshal(bson.D{{Key: "_id", Value: bson.NewObjectID()}, {Key: "url", Value: "https://a.com"}})
		require.NoError(t, err)

		require.NoError(t, store.Insert(ctx, "sites", first))
		require.ErrorIs(t, store.Insert(ctx, "sites", second), docstore.ErrDuplicateKey)
	})

	t.Run("missing document maps to ErrNotFound", func(t *testing.T) {
		_, err := store.FindOne(ctx, "sites", docstore.ByID(bson.NewObjectID()))
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("upsert with add-to-set deduplicates", func(t *testing.T) {
		id := bson.NewObjectID()
		doc := bson.NewObjectID()
		update := docstore.Update{AddToSet: map[string][]any{"documents": {doc, doc}}}

		res, err := store.UpdateOne(ctx, "scans", docstore.ByID(id), update, true)
		require.NoError(t, err)
		assert.Equal(t, id, res.UpsertedID)

		_, err = store.UpdateOne(ctx, "scans", docstore.ByID(id), update, true)
		require.NoError(t, err)

		raw, err := store.FindOne(ctx, "scans", docstore.ByID(id))
		require.NoError(t, err)
		values, err := raw.Lookup("documents").Array().Values()
		require.NoError(t, err)
		assert.Len(t, values, 1)
	})

	t.Run("bulk update reports empty operations", func(t *testing.T) {
		ids := []bson.ObjectID{bson.NewObjectID(), bson.NewObjectID()}
		for _, id := range ids {
			raw, err := bson.Marshal(bson.D{{Key: "_id", Value: id}, {Key: "running", Value: false}})
			require.NoError(t, err)
			require.NoError(t, store.Insert(ctx, "server_instructions", raw))
		}

		failures, err := store.BulkUpdate(ctx, "server_instructions", []docstore.UpdateByID{
			{ID: ids[0], Update: docstore.Update{Set: map[string]any{}}},
			{ID: ids[1], Update: docstore.Update{Set: map[string]any{"running": true}}},
		})
		require.NoError(t, err)
		require.Len(t, failures, 1)
		assert.Equal(t, 0, failures[0].Index)
		assert.Equal(t, docstore.CodeEmptyUpdate, failures[0].Code)

		raw, err := store.FindOne(ctx, "server_instructions", docstore.ByID(ids[1]))
		require.NoError(t, err)
		assert.True(t, raw.Lookup("running").Boolean())
	})

	t.Run("bulk update reports missing documents", func(t *testing.T) {
		present, missing := bson.NewObjectID(), bson.NewObjectID()
		raw, err := bson.Marshal(bson.D{{Key: "_id", Value: present}, {Key: "running", Value: false}})
		require.NoError(t, err)
		require.NoError(t, store.Insert(ctx, "server_instructions", raw))

		failures, err := store.BulkUpdate(ctx, "server_instructions", []docstore.UpdateByID{
			{ID: present, Update: docstore.Update{Set: map[string]any{"running": true}}},
			{ID: missing, Update: docstore.Update{Set: map[string]any{"running": true}}},
		})
		require.NoError(t, err)
		require.Len(t, failures, 1)
		assert.Equal(t, 1, failures[0].Index)
		assert.Equal(t, missing, failures[0].ID)
		assert.Equal(t, docstore.CodeNotFound, failures[0].Code)
	})
}

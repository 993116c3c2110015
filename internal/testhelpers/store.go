package testhelpers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
)

// Compile-time contract assertion.
var _ docstore.Store = (*MockStore)(nil)

// MockStore is a testify mock of docstore.Store for error-path tests.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindOne(ctx context.Context, collection string, filter docstore.Filter) (bson.Raw, error) {
	args := m.Called(ctx, collection, filter)
	raw, _ := args.Get(0).(bson.Raw)
	return raw, args.Error(1)
}

func (m *MockStore) FindMany(ctx context.Context, collection string, filter docstore.Filter) ([]bson.Raw, error) {
	args := m.Called(ctx, collection, filter)
	raws, _ := args.Get(0).([]bson.Raw)
	return raws, args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, collection string, doc bson.Raw) error {
	return m.Called(ctx, collection, doc).Error(0)
}

func (m *MockStore) Replace(ctx context.Context, collection string, doc bson.Raw) error {
	return m.Called(ctx, collection, doc).Error(0)
}

func (m *MockStore) UpdateOne(
	ctx context.Context, collection string, filter docstore.Filter, update docstore.Update, upsert bool,
) (docstore.UpdateResult, error) {
	args := m.Called(ctx, collection, filter, update, upsert)
	res, _ := args.Get(0).(docstore.UpdateResult)
	return res, args.Error(1)
}

func (m *MockStore) BulkUpdate(
	ctx context.Context, collection string, ops []docstore.UpdateByID,
) ([]docstore.WriteError, error) {
	args := m.Called(ctx, collection, ops)
	failures, _ := args.Get(0).([]docstore.WriteError)
	return failures, args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	args := m.Called(ctx, collection, filter)
	return int64(args.Int(0)), args.Error(1)
}

func (m *MockStore) EnsureIndexes(ctx context.Context, collection string, indexes []docstore.Index) error {
	return m.Called(ctx, collection, indexes).Error(0)
}

// Package mongostore implements docstore.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/retry"
)

// Compile-time contract assertion.
var _ docstore.Store = (*Store)(nil)

// codeFailedToParse is the server code reported for an empty update operator.
const codeFailedToParse = 9

// Options configures the connection.
type Options struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	Retry          retry.Config
}

// Store is a MongoDB-backed document store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    logger.Logger
}

// Connect opens a client, waits for the primary to answer a ping and returns
// a store bound to opts.Database.
func Connect(ctx context.Context, opts Options, log logger.Logger) (*Store, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout).SetServerSelectionTimeout(opts.ConnectTimeout)
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	retryCfg := opts.Retry
	retryCfg.OnRetry = func(attempt int, delay time.Duration, pingErr error) {
		log.Warn("MongoDB not reachable yet, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(pingErr),
		)
	}
	pingErr := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	if pingErr != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", pingErr)
	}

	log.Info("MongoDB connection established", logger.String("database", opts.Database))

	return New(client.Database(opts.Database), log), nil
}

// New wraps an existing database handle.
func New(db *mongo.Database, log logger.Logger) *Store {
	return &Store{client: db.Client(), db: db, log: log}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// FindOne returns the first document matching filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter docstore.Filter) (bson.Raw, error) {
	raw, err := s.db.Collection(collection).FindOne(ctx, toBSON(filter)).Raw()
	if err != nil {
		return nil, mapError(err)
	}
	return raw, nil
}

// FindMany returns every document matching filter ordered by identity.
func (s *Store) FindMany(ctx context.Context, collection string, filter docstore.Filter) ([]bson.Raw, error) {
	cur, err := s.db.Collection(collection).Find(ctx, toBSON(filter),
		options.Find().SetSort(bson.D{{Key: docstore.IDField, Value: 1}}))
	if err != nil {
		return nil, mapError(err)
	}
	defer cur.Close(ctx)

	out := make([]bson.Raw, 0)
	for cur.Next(ctx) {
		out = append(out, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// Insert stores a new document.
func (s *Store) Insert(ctx context.Context, collection string, doc bson.Raw) error {
	if _, ok := docstore.IDOf(doc); !ok {
		return docstore.ErrMissingID
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return mapError(err)
	}
	return nil
}

// Replace overwrites the document with doc's identity, inserting it if absent.
func (s *Store) Replace(ctx context.Context, collection string, doc bson.Raw) error {
	id, ok := docstore.IDOf(doc)
	if !ok {
		return docstore.ErrMissingID
	}
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.D{{Key: docstore.IDField, Value: id}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateOne applies update to the first document matching filter.
func (s *Store) UpdateOne(
	ctx context.Context, collection string, filter docstore.Filter, update docstore.Update, upsert bool,
) (docstore.UpdateResult, error) {
	if update.IsEmpty() {
		return docstore.UpdateResult{}, docstore.ErrEmptyUpdate
	}

	res, err := s.db.Collection(collection).UpdateOne(ctx, toBSON(filter), toUpdate(update),
		options.UpdateOne().SetUpsert(upsert))
	if err != nil {
		return docstore.UpdateResult{}, mapError(err)
	}

	out := docstore.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}
	if id, ok := res.UpsertedID.(bson.ObjectID); ok {
		out.UpsertedID = id
	}
	return out, nil
}

// BulkUpdate submits the operations as one unordered batch. Operations that
// modify nothing are rejected without a round trip.
func (s *Store) BulkUpdate(ctx context.Context, collection string, ops []docstore.UpdateByID) ([]docstore.WriteError, error) {
	var failures []docstore.WriteError
	models := make([]mongo.WriteModel, 0, len(ops))
	positions := make([]int, 0, len(ops))

	for i, op := range ops {
		if op.Update.IsEmpty() {
			failures = append(failures, docstore.WriteError{
				Index: i, ID: op.ID, Code: docstore.CodeEmptyUpdate,
				Message: "'$set' is empty. You must specify a field like so: {$set: {<field>: ...}}",
			})
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: docstore.IDField, Value: op.ID}}).
			SetUpdate(toUpdate(op.Update)))
		positions = append(positions, i)
	}
	if len(models) == 0 {
		return failures, nil
	}

	coll := s.db.Collection(collection)
	res, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	failed := make(map[int]bool)
	if err != nil {
		var bwe mongo.BulkWriteException
		if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
			return failures, fmt.Errorf("bulk write %s: %w", collection, err)
		}
		for _, we := range bwe.WriteErrors {
			pos := positions[we.Index]
			failed[pos] = true
			failures = append(failures, docstore.WriteError{
				Index:   pos,
				ID:      ops[pos].ID,
				Code:    classify(we.Code, we.Message),
				Message: we.Message,
			})
		}
	}

	applied := len(positions) - len(failed)
	if res != nil && res.MatchedCount >= int64(applied) {
		return failures, nil
	}
	missing, err := s.unmatched(ctx, coll, ops, positions, failed)
	if err != nil {
		return failures, fmt.Errorf("bulk write %s: %w", collection, err)
	}
	failures = append(failures, missing...)
	slices.SortFunc(failures, func(a, b docstore.WriteError) int { return a.Index - b.Index })
	return failures, nil
}

// unmatched reports the submitted operations whose identity no longer exists.
// The server only returns a matched count, so the identities are looked up.
func (s *Store) unmatched(
	ctx context.Context, coll *mongo.Collection, ops []docstore.UpdateByID, positions []int, failed map[int]bool,
) ([]docstore.WriteError, error) {
	ids := make([]bson.ObjectID, 0, len(positions))
	for _, pos := range positions {
		if !failed[pos] {
			ids = append(ids, ops[pos].ID)
		}
	}
	cursor, err := coll.Find(ctx,
		bson.D{{Key: docstore.IDField, Value: bson.D{{Key: "$in", Value: ids}}}},
		options.Find().SetProjection(bson.D{{Key: docstore.IDField, Value: 1}}))
	if err != nil {
		return nil, mapError(err)
	}
	var found []struct {
		ID bson.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &found); err != nil {
		return nil, mapError(err)
	}
	exists := make(map[bson.ObjectID]bool, len(found))
	for _, f := range found {
		exists[f.ID] = true
	}

	var out []docstore.WriteError
	for _, pos := range positions {
		if failed[pos] || exists[ops[pos].ID] {
			continue
		}
		out = append(out, docstore.WriteError{
			Index: pos, ID: ops[pos].ID, Code: docstore.CodeNotFound,
			Message: "no document matches the operation's _id",
		})
	}
	s.log.Debug("Bulk update matched fewer documents than submitted",
		logger.String("collection", coll.Name()),
		logger.Int("missing", len(out)),
	)
	return out, nil
}

// Delete removes every document matching filter.
func (s *Store) Delete(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, toBSON(filter))
	if err != nil {
		return 0, mapError(err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates single-field ascending indexes.
func (s *Store) EnsureIndexes(ctx context.Context, collection string, indexes []docstore.Index) error {
	if len(indexes) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, len(indexes))
	for i, idx := range indexes {
		models[i] = mongo.IndexModel{
			Keys:    bson.D{{Key: idx.Field, Value: 1}},
			Options: options.Index().SetUnique(idx.Unique),
		}
	}
	names, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("create indexes on %s: %w", collection, mapError(err))
	}
	s.log.Debug("Indexes ensured",
		logger.String("collection", collection),
		logger.Strings("indexes", names),
	)
	return nil
}

func toBSON(filter docstore.Filter) bson.D {
	out := make(bson.D, 0, len(filter))
	for _, key := range docstore.SortedKeys(filter) {
		out = append(out, bson.E{Key: key, Value: filter[key]})
	}
	return out
}

func toUpdate(u docstore.Update) bson.D {
	var out bson.D
	if len(u.Set) > 0 {
		out = append(out, bson.E{Key: "$set", Value: toBSON(u.Set)})
	}
	if len(u.Unset) > 0 {
		unset := make(bson.D, len(u.Unset))
		for i, field := range u.Unset {
			unset[i] = bson.E{Key: field, Value: ""}
		}
		out = append(out, bson.E{Key: "$unset", Value: unset})
	}
	if len(u.SetOnInsert) > 0 {
		out = append(out, bson.E{Key: "$setOnInsert", Value: toBSON(u.SetOnInsert)})
	}
	if len(u.AddToSet) > 0 {
		add := make(bson.D, 0, len(u.AddToSet))
		for _, field := range docstore.SortedKeys(u.AddToSet) {
			add = append(add, bson.E{Key: field, Value: bson.D{{Key: "$each", Value: u.AddToSet[field]}}})
		}
		out = append(out, bson.E{Key: "$addToSet", Value: add})
	}
	return out
}

func classify(code int, message string) docstore.ErrorCode {
	switch {
	case code == codeFailedToParse && strings.Contains(message, "is empty"):
		return docstore.CodeEmptyUpdate
	case code == 11000 || code == 11001:
		return docstore.CodeDuplicateKey
	default:
		return docstore.CodeUnknown
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return docstore.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", docstore.ErrDuplicateKey, err)
	default:
		return err
	}
}

// Package docstore defines the document store contract consumed by the
// persistence core, together with the structured errors returned across it.
//
// Documents cross the boundary as BSON. Filters are equality matches on
// top-level fields; updates are expressed with Update rather than raw driver
// operators so every implementation can honor the same semantics.
package docstore

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// IDField is the name of the identity field in every collection.
const IDField = "_id"

// Filter selects documents whose top-level fields equal the given values.
type Filter map[string]any

// ByID returns a filter matching a single identity.
func ByID(id bson.ObjectID) Filter {
	return Filter{IDField: id}
}

// Update describes a single-document modification.
type Update struct {
	// Set overwrites fields with new values.
	Set map[string]any
	// Unset removes fields.
	Unset []string
	// SetOnInsert writes fields only when the operation inserts a new document.
	SetOnInsert map[string]any
	// AddToSet appends each element to the named array unless an equal
	// element is already present.
	AddToSet map[string][]any
}

// IsEmpty reports whether u modifies nothing.
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Unset) == 0 && len(u.SetOnInsert) == 0 && len(u.AddToSet) == 0
}

// UpdateByID is one operation of an unordered bulk update.
type UpdateByID struct {
	ID     bson.ObjectID
	Update Update
}

// UpdateResult reports the effect of UpdateOne.
type UpdateResult struct {
	Matched    int64
	Modified   int64
	UpsertedID bson.ObjectID
}

// Index describes a single-field index on a collection.
type Index struct {
	Field  string
	Unique bool
}

// Store is the document store collaborator.
type Store interface {
	// FindOne returns the first document matching filter, or ErrNotFound.
	FindOne(ctx context.Context, collection string, filter Filter) (bson.Raw, error)
	// FindMany returns every document matching filter in insertion order.
	FindMany(ctx context.Context, collection string, filter Filter) ([]bson.Raw, error)
	// Insert stores a new document. The document must carry an identity.
	Insert(ctx context.Context, collection string, doc bson.Raw) error
	// Replace overwrites the document with doc's identity, inserting it if absent.
	Replace(ctx context.Context, collection string, doc bson.Raw) error
	// UpdateOne applies update to the first document matching filter. When
	// upsert is set and nothing matches, a document built from the filter's
	// equality fields and the update is inserted.
	UpdateOne(ctx context.Context, collection string, filter Filter, update Update, upsert bool) (UpdateResult, error)
	// BulkUpdate applies independent updates as one unordered batch. Failed
	// operations, including those whose identity matches no document, are
	// reported per operation; they never abort their siblings.
	// The returned error is reserved for failures of the batch as a whole.
	BulkUpdate(ctx context.Context, collection string, ops []UpdateByID) ([]WriteError, error)
	// Delete removes every document matching filter.
	Delete(ctx context.Context, collection string, filter Filter) (int64, error)
	// EnsureIndexes creates the given indexes if they do not exist.
	EnsureIndexes(ctx context.Context, collection string, indexes []Index) error
}

// SortedKeys returns the keys of m in lexical order. Implementations use it so
// that writes built from maps are deterministic.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

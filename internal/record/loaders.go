package record

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
)

// Loadable constrains T to entities whose pointer type is a Document.
type Loadable[T any] interface {
	*T
	Document
}

// FindByID loads and tracks the entity with the given identity. A missing
// document returns docstore.ErrNotFound.
func FindByID[T any, PT Loadable[T]](ctx context.Context, store docstore.Store, id bson.ObjectID) (PT, error) {
	return FindOne[T, PT](ctx, store, docstore.ByID(id))
}

// FindOne loads and tracks the first entity matching filter.
func FindOne[T any, PT Loadable[T]](ctx context.Context, store docstore.Store, filter docstore.Filter) (PT, error) {
	doc := PT(new(T))
	raw, err := store.FindOne(ctx, doc.Collection(), filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", entityName(doc), err)
	}
	if err := decodeInto(raw, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FindAll loads and tracks every entity matching filter.
func FindAll[T any, PT Loadable[T]](ctx context.Context, store docstore.Store, filter docstore.Filter) ([]PT, error) {
	collection := PT(new(T)).Collection()
	raws, err := store.FindMany(ctx, collection, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	out := make([]PT, 0, len(raws))
	for _, raw := range raws {
		doc := PT(new(T))
		if err := decodeInto(raw, doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// AsDocuments widens a typed slice for BulkUpdate.
func AsDocuments[PT Document](docs []PT) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

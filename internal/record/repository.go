package record

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/metrics"
)

// Repository persists change-tracked documents through a document store.
type Repository struct {
	store   docstore.Store
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewRepository creates a repository. metrics may be nil.
func NewRepository(store docstore.Store, log logger.Logger, m *metrics.Metrics) *Repository {
	return &Repository{store: store, log: log, metrics: m}
}

// Store returns the underlying document store.
func (r *Repository) Store() docstore.Store {
	return r.store
}

// Save validates doc and replaces the stored document by identity, inserting
// it if absent. Documents with a non-empty unique list must be written with
// SaveWithUniqueness instead.
func (r *Repository) Save(ctx context.Context, doc Document) error {
	fields, err := Fields(doc)
	if err != nil {
		return err
	}
	for _, name := range doc.UniqueLists() {
		values, arrErr := arrayValues(fields[name])
		if arrErr != nil {
			return fmt.Errorf("save %s: %s: %w", entityName(doc), name, arrErr)
		}
		if len(values) > 0 {
			return opError("save", doc,
				"non-empty list %q must be written with SaveWithUniqueness", name)
		}
	}

	if err := doc.Validate(); err != nil {
		return fmt.Errorf("save %s: %w", entityName(doc), err)
	}

	base := doc.tracker()
	if base.ID.IsZero() {
		base.ID = bson.NewObjectID()
	}
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	if err := r.store.Replace(ctx, doc.Collection(), raw); err != nil {
		return fmt.Errorf("save %s: %w", entityName(doc), err)
	}
	r.metrics.RecordWrite(doc.Collection(), metrics.ModeReplace)

	return markPersisted(doc)
}

// SaveWithUniqueness upserts doc by identity, appending each element of the
// unique list field with add-if-absent semantics and setting every other
// changed field. On success doc is reloaded from the store so that it holds
// the de-duplicated list.
func (r *Repository) SaveWithUniqueness(ctx context.Context, doc Document, field string) (bson.ObjectID, error) {
	const op = "save_with_uniqueness"

	if !slices.Contains(doc.UniqueLists(), field) {
		return bson.ObjectID{}, opError(op, doc, "%q is not a unique list field", field)
	}
	delta, err := Diff(doc)
	if err != nil {
		return bson.ObjectID{}, err
	}
	elements, err := arrayValues(delta.Fields[field])
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%s %s: %s: %w", op, entityName(doc), field, err)
	}
	if len(elements) == 0 {
		return bson.ObjectID{}, opError(op, doc, "list %q is empty, use Save instead", field)
	}
	if len(delta.Updates) == 0 {
		return bson.ObjectID{}, opError(op, doc, "no fields were modified since the record was loaded or saved")
	}
	if err := doc.Validate(); err != nil {
		return bson.ObjectID{}, fmt.Errorf("%s %s: %w", op, entityName(doc), err)
	}

	base := doc.tracker()
	if base.ID.IsZero() {
		base.ID = bson.NewObjectID()
	}

	update := docstore.Update{
		Set:      make(map[string]any),
		Unset:    delta.Removals,
		AddToSet: map[string][]any{field: toAny(elements)},
	}
	for key, v := range delta.Updates {
		if key != field {
			update.Set[key] = v
		}
	}
	if !base.persisted {
		update.SetOnInsert = make(map[string]any)
		for key, v := range delta.Fields {
			_, changed := delta.Updates[key]
			if key == docstore.IDField || key == field || changed || docstore.IsNull(v) {
				continue
			}
			update.SetOnInsert[key] = v
		}
	}

	if _, err := r.store.UpdateOne(ctx, doc.Collection(), docstore.ByID(base.ID), update, true); err != nil {
		return bson.ObjectID{}, fmt.Errorf("%s %s: %w", op, entityName(doc), err)
	}
	r.metrics.RecordWrite(doc.Collection(), metrics.ModeUniqueness)

	id := base.ID
	raw, err := r.store.FindOne(ctx, doc.Collection(), docstore.ByID(id))
	if err != nil {
		return id, fmt.Errorf("%s %s: reload: %w", op, entityName(doc), err)
	}
	if err := decodeInto(raw, doc); err != nil {
		return id, err
	}
	return id, nil
}

// BulkUpdate writes the pending changes of every document as one unordered
// batch. All documents must belong to one collection and pass validation,
// otherwise nothing is submitted. Per-document failures are returned,
// including documents that no longer exist; an empty slice means every
// operation succeeded.
func (r *Repository) BulkUpdate(ctx context.Context, docs []Document) ([]docstore.WriteError, error) {
	const op = "bulk_update"

	if len(docs) == 0 {
		return nil, nil
	}
	collection := docs[0].Collection()

	ops := make([]docstore.UpdateByID, len(docs))
	for i, doc := range docs {
		if doc.Collection() != collection {
			return nil, opError(op, doc, "records span collections %q and %q", collection, doc.Collection())
		}
		id := doc.tracker().ID
		if id.IsZero() {
			return nil, opError(op, doc, "record at position %d has no identity", i)
		}
		if err := doc.Validate(); err != nil {
			e := opError(op, doc, "record %s is invalid", id.Hex())
			e.Err = err
			return nil, e
		}
		delta, err := Diff(doc)
		if err != nil {
			return nil, err
		}
		set := make(map[string]any, len(delta.Updates))
		for key, v := range delta.Updates {
			set[key] = v
		}
		ops[i] = docstore.UpdateByID{ID: id, Update: docstore.Update{Set: set, Unset: delta.Removals}}
	}

	failures, err := r.store.BulkUpdate(ctx, collection, ops)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, collection, err)
	}

	failed := make(map[int]bool, len(failures))
	for _, f := range failures {
		failed[f.Index] = true
		r.log.Warn("Bulk update operation failed",
			logger.String("collection", collection),
			logger.ObjectID("id", f.ID),
			logger.String("code", string(f.Code)),
			logger.String("message", f.Message),
		)
	}
	for i, doc := range docs {
		if failed[i] {
			continue
		}
		if err := markPersisted(doc); err != nil {
			return failures, err
		}
	}
	r.metrics.RecordBulk(collection, len(docs)-len(failed), len(failed))

	if failures == nil {
		failures = []docstore.WriteError{}
	}
	return failures, nil
}

// Delete removes doc from the store by identity.
func (r *Repository) Delete(ctx context.Context, doc Document) error {
	id := doc.tracker().ID
	if id.IsZero() {
		return opError("delete", doc, "record has no identity")
	}
	if _, err := r.store.Delete(ctx, doc.Collection(), docstore.ByID(id)); err != nil {
		return fmt.Errorf("delete %s: %w", entityName(doc), err)
	}
	doc.tracker().persisted = false
	return nil
}

func toAny(values []bson.RawValue) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Package memory provides an in-memory implementation of docstore.Store used
// for tests and ephemeral environments. Documents are held in their encoded
// BSON form; all operations are serialized by a single mutex.
package memory

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
)

// Compile-time contract assertion.
var _ docstore.Store = (*Store)(nil)

// emptySetMessage mirrors the message MongoDB returns for an empty $set.
const emptySetMessage = "'$set' is empty. You must specify a field like so: {$set: {<field>: ...}}"

// notFoundMessage is reported for a bulk operation whose identity matches nothing.
const notFoundMessage = "no document matches the operation's _id"

type collection struct {
	docs   []bson.Raw
	unique []string
}

// Store is an in-memory document store.
type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{}
		s.collections[name] = c
	}
	return c
}

// FindOne returns the first document matching filter.
func (s *Store) FindOne(_ context.Context, name string, filter docstore.Filter) (bson.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	for _, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return clone(doc), nil
		}
	}
	return nil, docstore.ErrNotFound
}

// FindMany returns every document matching filter in insertion order.
func (s *Store) FindMany(_ context.Context, name string, filter docstore.Filter) ([]bson.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	out := make([]bson.Raw, 0)
	for _, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, clone(doc))
		}
	}
	return out, nil
}

// Insert stores a new document.
func (s *Store) Insert(_ context.Context, name string, doc bson.Raw) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := docstore.IDOf(doc)
	if !ok {
		return docstore.ErrMissingID
	}
	c := s.coll(name)
	if c.indexOf(id) >= 0 {
		return fmt.Errorf("%w: _id %s", docstore.ErrDuplicateKey, id.Hex())
	}
	if err := c.checkUnique(doc, id); err != nil {
		return err
	}
	c.docs = append(c.docs, clone(doc))
	return nil
}

// Replace overwrites the document with doc's identity, inserting it if absent.
func (s *Store) Replace(_ context.Context, name string, doc bson.Raw) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := docstore.IDOf(doc)
	if !ok {
		return docstore.ErrMissingID
	}
	c := s.coll(name)
	if err := c.checkUnique(doc, id); err != nil {
		return err
	}
	if i := c.indexOf(id); i >= 0 {
		c.docs[i] = clone(doc)
		return nil
	}
	c.docs = append(c.docs, clone(doc))
	return nil
}

// UpdateOne applies update to the first document matching filter.
func (s *Store) UpdateOne(
	_ context.Context, name string, filter docstore.Filter, update docstore.Update, upsert bool,
) (docstore.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.IsEmpty() {
		return docstore.UpdateResult{}, fmt.Errorf("%w: %s", docstore.ErrEmptyUpdate, emptySetMessage)
	}

	c := s.coll(name)
	for i, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return docstore.UpdateResult{}, err
		}
		if !ok {
			continue
		}
		updated, err := apply(doc, update, false)
		if err != nil {
			return docstore.UpdateResult{}, err
		}
		id, _ := docstore.IDOf(doc)
		if err := c.checkUnique(updated, id); err != nil {
			return docstore.UpdateResult{}, err
		}
		modified := int64(0)
		if !bytesEqual(doc, updated) {
			modified = 1
		}
		c.docs[i] = updated
		return docstore.UpdateResult{Matched: 1, Modified: modified}, nil
	}

	if !upsert {
		return docstore.UpdateResult{}, nil
	}

	seed, id, err := seedFromFilter(filter)
	if err != nil {
		return docstore.UpdateResult{}, err
	}
	inserted, err := apply(seed, update, true)
	if err != nil {
		return docstore.UpdateResult{}, err
	}
	if err := c.checkUnique(inserted, id); err != nil {
		return docstore.UpdateResult{}, err
	}
	c.docs = append(c.docs, inserted)
	return docstore.UpdateResult{UpsertedID: id}, nil
}

// BulkUpdate applies every operation independently; failures are collected.
func (s *Store) BulkUpdate(_ context.Context, name string, ops []docstore.UpdateByID) ([]docstore.WriteError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	var failures []docstore.WriteError
	for idx, op := range ops {
		if op.Update.IsEmpty() {
			failures = append(failures, docstore.WriteError{
				Index: idx, ID: op.ID, Code: docstore.CodeEmptyUpdate, Message: emptySetMessage,
			})
			continue
		}
		i := c.indexOf(op.ID)
		if i < 0 {
			failures = append(failures, docstore.WriteError{
				Index: idx, ID: op.ID, Code: docstore.CodeNotFound, Message: notFoundMessage,
			})
			continue
		}
		updated, err := apply(c.docs[i], op.Update, false)
		if err != nil {
			failures = append(failures, docstore.WriteError{
				Index: idx, ID: op.ID, Code: docstore.CodeUnknown, Message: err.Error(),
			})
			continue
		}
		if err := c.checkUnique(updated, op.ID); err != nil {
			failures = append(failures, docstore.WriteError{
				Index: idx, ID: op.ID, Code: docstore.CodeDuplicateKey, Message: err.Error(),
			})
			continue
		}
		c.docs[i] = updated
	}
	return failures, nil
}

// Delete removes every document matching filter.
func (s *Store) Delete(_ context.Context, name string, filter docstore.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	kept := c.docs[:0]
	var deleted int64
	for _, doc := range c.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return deleted, nil
}

// EnsureIndexes records unique fields; non-unique indexes are accepted and ignored.
func (s *Store) EnsureIndexes(_ context.Context, name string, indexes []docstore.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	for _, idx := range indexes {
		if !idx.Unique || contains(c.unique, idx.Field) {
			continue
		}
		for i, doc := range c.docs {
			id, _ := docstore.IDOf(doc)
			if err := c.checkUniqueField(doc, id, idx.Field, i); err != nil {
				return err
			}
		}
		c.unique = append(c.unique, idx.Field)
	}
	return nil
}

func (c *collection) indexOf(id bson.ObjectID) int {
	for i, doc := range c.docs {
		if docID, ok := docstore.IDOf(doc); ok && docID == id {
			return i
		}
	}
	return -1
}

func (c *collection) checkUnique(doc bson.Raw, id bson.ObjectID) error {
	for _, field := range c.unique {
		if err := c.checkUniqueField(doc, id, field, -1); err != nil {
			return err
		}
	}
	return nil
}

func (c *collection) checkUniqueField(doc bson.Raw, id bson.ObjectID, field string, skip int) error {
	v, err := doc.LookupErr(field)
	if err != nil || docstore.IsNull(v) {
		return nil
	}
	for i, other := range c.docs {
		if i == skip {
			continue
		}
		if otherID, _ := docstore.IDOf(other); otherID == id {
			continue
		}
		ov, lookupErr := other.LookupErr(field)
		if lookupErr == nil && docstore.EqualValues(v, ov) {
			return fmt.Errorf("%w: %s", docstore.ErrDuplicateKey, field)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package record implements change-tracked persistence for documents.
//
// An entity embeds Base, which carries its identity and an encoded snapshot of
// the fields last known to be in the store. Comparing the current encoding with
// the snapshot yields the pending updates and removals that drive the choice
// between a plain replacement write and a uniqueness-preserving incremental
// write.
//
// Entities must not use Go maps for fields whose changes need tracking: map
// encoding order is not stable. Use bson.D for opaque sub-documents.
package record

import (
	"bytes"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
)

// Document is a change-tracked entity. It is satisfied by pointers to structs
// that embed Base.
type Document interface {
	// Collection names the store collection the entity lives in.
	Collection() string
	// Validate checks the entity's schema.
	Validate() error
	// UniqueLists names the array fields that may only grow through
	// add-if-absent writes.
	UniqueLists() []string

	tracker() *Base
}

// Base carries the identity and change-tracking state of an entity. Embed it
// inline:
//
//	type Scan struct {
//		record.Base `bson:",inline"`
//		...
//	}
type Base struct {
	ID bson.ObjectID `bson:"_id,omitempty"`

	snapshot  map[string]bson.RawValue
	persisted bool
}

func (b *Base) tracker() *Base { return b }

// GetID returns the identity, zero when none has been assigned.
func (b *Base) GetID() bson.ObjectID { return b.ID }

// Persisted reports whether the entity was loaded from or written to the store.
func (b *Base) Persisted() bool { return b.persisted }

// Tracked reports whether a snapshot has been taken.
func (b *Base) Tracked() bool { return b.snapshot != nil }

// Fields returns the encoded top-level fields of doc. Nil slices encode as
// empty arrays.
func Fields(doc Document) (map[string]bson.RawValue, error) {
	raw, err := encode(doc)
	if err != nil {
		return nil, err
	}
	return fieldsOf(raw)
}

func encode(doc Document) (bson.Raw, error) {
	buf := new(bytes.Buffer)
	enc := bson.NewEncoder(bson.NewDocumentWriter(buf))
	enc.NilSliceAsEmpty()
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", entityName(doc), err)
	}
	return bson.Raw(buf.Bytes()), nil
}

func fieldsOf(raw bson.Raw) (map[string]bson.RawValue, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	out := make(map[string]bson.RawValue, len(elems))
	for _, e := range elems {
		out[e.Key()] = e.Value()
	}
	return out, nil
}

// Track replaces doc's snapshot with its current fields. Constructors call it
// so that defaults are not reported as pending changes.
func Track(doc Document) error {
	fields, err := Fields(doc)
	if err != nil {
		return err
	}
	doc.tracker().snapshot = fields
	return nil
}

func markPersisted(doc Document) error {
	if err := Track(doc); err != nil {
		return err
	}
	doc.tracker().persisted = true
	return nil
}

// Delta is the difference between a document and its snapshot.
type Delta struct {
	// Updates are the fields whose encoding differs from the snapshot.
	Updates map[string]bson.RawValue
	// Removals are the fields that were non-null in the snapshot and are now
	// null or absent.
	Removals []string
	// Fields is the document's full current encoding.
	Fields map[string]bson.RawValue
}

// Diff computes the pending changes of doc. A document that was never tracked
// reports every non-null field as pending.
func Diff(doc Document) (Delta, error) {
	fields, err := Fields(doc)
	if err != nil {
		return Delta{}, err
	}
	snapshot := doc.tracker().snapshot

	delta := Delta{Updates: make(map[string]bson.RawValue), Fields: fields}
	for _, key := range docstore.SortedKeys(fields) {
		if key == docstore.IDField {
			continue
		}
		v := fields[key]
		if docstore.IsNull(v) {
			continue
		}
		if prev, ok := snapshot[key]; ok && docstore.EqualValues(prev, v) {
			continue
		}
		delta.Updates[key] = v
	}
	for _, key := range docstore.SortedKeys(snapshot) {
		if key == docstore.IDField || docstore.IsNull(snapshot[key]) {
			continue
		}
		if v, ok := fields[key]; !ok || docstore.IsNull(v) {
			delta.Removals = append(delta.Removals, key)
		}
	}
	return delta, nil
}

// Updates returns the pending updates of doc.
func Updates(doc Document) (map[string]bson.RawValue, error) {
	d, err := Diff(doc)
	return d.Updates, err
}

// Removals returns the pending removals of doc.
func Removals(doc Document) ([]string, error) {
	d, err := Diff(doc)
	return d.Removals, err
}

// IsModified reports whether doc has pending updates or removals.
func IsModified(doc Document) (bool, error) {
	d, err := Diff(doc)
	if err != nil {
		return false, err
	}
	return len(d.Updates) > 0 || len(d.Removals) > 0, nil
}

func arrayValues(v bson.RawValue) ([]bson.RawValue, error) {
	if docstore.IsNull(v) {
		return nil, nil
	}
	arr, ok := v.ArrayOK()
	if !ok {
		return nil, fmt.Errorf("field is not an array (%s)", v.Type)
	}
	return arr.Values()
}

func entityName(doc Document) string {
	t := reflect.TypeOf(doc)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// decodeInto overwrites doc with raw, resetting fields absent from raw.
func decodeInto(raw bson.Raw, doc Document) error {
	v := reflect.ValueOf(doc)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("decode %s: destination must be a non-nil pointer", entityName(doc))
	}
	v.Elem().SetZero()
	if err := bson.Unmarshal(raw, doc); err != nil {
		return fmt.Errorf("decode %s: %w", entityName(doc), err)
	}
	return markPersisted(doc)
}

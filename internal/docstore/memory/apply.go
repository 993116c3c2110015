package memory

import (
	"bytes"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
)

var errNotArray = errors.New("cannot apply $addToSet to a non-array field")

type element struct {
	key   string
	value bson.RawValue
}

type document []element

func decompose(raw bson.Raw) (document, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc := make(document, 0, len(elems))
	for _, e := range elems {
		doc = append(doc, element{key: e.Key(), value: e.Value()})
	}
	return doc, nil
}

func (d document) index(key string) int {
	for i, e := range d {
		if e.key == key {
			return i
		}
	}
	return -1
}

func (d document) set(key string, v bson.RawValue) document {
	if i := d.index(key); i >= 0 {
		d[i].value = v
		return d
	}
	return append(d, element{key: key, value: v})
}

func (d document) unset(key string) document {
	if i := d.index(key); i >= 0 {
		return append(d[:i], d[i+1:]...)
	}
	return d
}

func (d document) encode() (bson.Raw, error) {
	out := make(bson.D, len(d))
	for i, e := range d {
		out[i] = bson.E{Key: e.key, Value: e.value}
	}
	raw, err := bson.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// apply returns doc with update applied. SetOnInsert is honored only when
// inserting.
func apply(raw bson.Raw, update docstore.Update, inserting bool) (bson.Raw, error) {
	doc, err := decompose(raw)
	if err != nil {
		return nil, err
	}

	for _, key := range docstore.SortedKeys(update.Set) {
		v, encErr := docstore.EncodeValue(update.Set[key])
		if encErr != nil {
			return nil, encErr
		}
		doc = doc.set(key, v)
	}
	for _, key := range update.Unset {
		doc = doc.unset(key)
	}
	if inserting {
		for _, key := range docstore.SortedKeys(update.SetOnInsert) {
			v, encErr := docstore.EncodeValue(update.SetOnInsert[key])
			if encErr != nil {
				return nil, encErr
			}
			doc = doc.set(key, v)
		}
	}
	for _, key := range docstore.SortedKeys(update.AddToSet) {
		doc, err = addToSet(doc, key, update.AddToSet[key])
		if err != nil {
			return nil, err
		}
	}
	return doc.encode()
}

func addToSet(doc document, key string, items []any) (document, error) {
	var current []bson.RawValue
	if i := doc.index(key); i >= 0 && !docstore.IsNull(doc[i].value) {
		arr, ok := doc[i].value.ArrayOK()
		if !ok {
			return nil, fmt.Errorf("%w: %s", errNotArray, key)
		}
		values, err := arr.Values()
		if err != nil {
			return nil, fmt.Errorf("decode array %s: %w", key, err)
		}
		current = values
	}

	for _, item := range items {
		v, err := docstore.EncodeValue(item)
		if err != nil {
			return nil, err
		}
		if !containsValue(current, v) {
			current = append(current, v)
		}
	}

	list := make(bson.A, len(current))
	for i, v := range current {
		list[i] = v
	}
	encoded, err := docstore.EncodeValue(list)
	if err != nil {
		return nil, err
	}
	return doc.set(key, encoded), nil
}

func containsValue(list []bson.RawValue, v bson.RawValue) bool {
	for _, item := range list {
		if docstore.EqualValues(item, v) {
			return true
		}
	}
	return false
}

// matches reports whether every filter field equals the document's value. A
// null filter value matches a missing field.
func matches(doc bson.Raw, filter docstore.Filter) (bool, error) {
	for key, want := range filter {
		expected, err := docstore.EncodeValue(want)
		if err != nil {
			return false, err
		}
		got, lookupErr := doc.LookupErr(key)
		if lookupErr != nil {
			if docstore.IsNull(expected) {
				continue
			}
			return false, nil
		}
		if !docstore.EqualValues(got, expected) {
			return false, nil
		}
	}
	return true, nil
}

// seedFromFilter builds the base of an upserted document from the filter's
// equality fields, generating an identity when the filter names none.
func seedFromFilter(filter docstore.Filter) (bson.Raw, bson.ObjectID, error) {
	id := bson.NewObjectID()
	if v, ok := filter[docstore.IDField]; ok {
		oid, isOID := v.(bson.ObjectID)
		if !isOID {
			return nil, bson.ObjectID{}, fmt.Errorf("%w: upsert filter _id must be an ObjectID", docstore.ErrMissingID)
		}
		id = oid
	}

	idValue, err := docstore.EncodeValue(id)
	if err != nil {
		return nil, bson.ObjectID{}, err
	}
	doc := document{{key: docstore.IDField, value: idValue}}
	for _, key := range docstore.SortedKeys(filter) {
		if key == docstore.IDField {
			continue
		}
		v, encErr := docstore.EncodeValue(filter[key])
		if encErr != nil {
			return nil, bson.ObjectID{}, encErr
		}
		doc = doc.set(key, v)
	}
	raw, err := doc.encode()
	return raw, id, err
}

func clone(doc bson.Raw) bson.Raw {
	return append(bson.Raw(nil), doc...)
}

func bytesEqual(a, b bson.Raw) bool {
	return bytes.Equal(a, b)
}

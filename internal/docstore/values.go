package docstore

import (
	"bytes"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EncodeValue returns the BSON encoding of v. RawValues pass through untouched.
func EncodeValue(v any) (bson.RawValue, error) {
	if rv, ok := v.(bson.RawValue); ok {
		return rv, nil
	}
	t, data, err := bson.MarshalValue(v)
	if err != nil {
		return bson.RawValue{}, fmt.Errorf("encode value: %w", err)
	}
	return bson.RawValue{Type: t, Value: data}, nil
}

// EqualValues reports whether two encoded values are byte-for-byte identical.
func EqualValues(a, b bson.RawValue) bool {
	return a.Type == b.Type && bytes.Equal(a.Value, b.Value)
}

// IsNull reports whether v is absent or BSON null.
func IsNull(v bson.RawValue) bool {
	return v.Type == 0 || v.Type == bson.TypeNull || v.Type == bson.TypeUndefined
}

// IDOf returns the identity of an encoded document.
func IDOf(doc bson.Raw) (bson.ObjectID, bool) {
	v, err := doc.LookupErr(IDField)
	if err != nil {
		return bson.ObjectID{}, false
	}
	id, ok := v.ObjectIDOK()
	return id, ok
}

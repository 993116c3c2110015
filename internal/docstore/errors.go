package docstore

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// ErrNotFound is returned when no document matches a filter.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateKey is returned when a write violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrMissingID is returned when a document is written without an identity.
	ErrMissingID = errors.New("document has no _id")
	// ErrEmptyUpdate is returned when an update carries no field to modify.
	ErrEmptyUpdate = errors.New("update is empty")
)

// ErrorCode classifies a failed operation of a bulk write.
type ErrorCode string

const (
	// CodeEmptyUpdate means the operation carried no field to modify.
	CodeEmptyUpdate ErrorCode = "EMPTY_UPDATE"
	// CodeDuplicateKey means the operation violated a unique index.
	CodeDuplicateKey ErrorCode = "DUPLICATE_KEY"
	// CodeNotFound means no document carries the operation's identity.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeUnknown covers every other store-reported failure.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// WriteError is one failed operation of a bulk write. Index is the position of
// the operation in the submitted batch.
type WriteError struct {
	Index   int
	ID      bson.ObjectID
	Code    ErrorCode
	Message string
}

func (e WriteError) Error() string {
	return fmt.Sprintf("operation %d on %s failed (%s): %s", e.Index, e.ID.Hex(), e.Code, e.Message)
}

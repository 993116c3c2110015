package record

import "fmt"

// OperationError reports a persistence operation refused by the record layer.
type OperationError struct {
	Op     string
	Entity string
	Msg    string
	Err    error
}

func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Entity, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Msg)
}

func (e *OperationError) Unwrap() error { return e.Err }

func opError(op string, doc Document, format string, args ...any) *OperationError {
	return &OperationError{Op: op, Entity: entityName(doc), Msg: fmt.Sprintf(format, args...)}
}

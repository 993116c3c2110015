package scheduler

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
)

// ErrSchedulingConflict matches every *ConflictError.
var ErrSchedulingConflict = errors.New("scheduling conflict")

// ConflictError reports an instruction that cannot coexist with the ones
// already stored for its site.
type ConflictError struct {
	Site      bson.ObjectID
	Operation models.Operation
	Existing  []models.Operation
	Reason    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict for site %s: cannot add %q to %q: %s",
		e.Site.Hex(), e.Operation, e.Existing, e.Reason)
}

// Is reports whether target is ErrSchedulingConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrSchedulingConflict
}

// checkCoexistence applies the per-site rules: at most two instructions,
// never two of one kind, never STOP AND RUN together with STOP.
func checkCoexistence(site bson.ObjectID, op models.Operation, existing []*models.ServerInstruction) *ConflictError {
	ops := make([]models.Operation, len(existing))
	for i, inst := range existing {
		ops[i] = inst.Operation
	}
	conflict := func(reason string) *ConflictError {
		return &ConflictError{Site: site, Operation: op, Existing: ops, Reason: reason}
	}

	if len(ops) >= maxInstructionsPerSite {
		return conflict(fmt.Sprintf("only %d instructions can be stored simultaneously", maxInstructionsPerSite))
	}
	for _, other := range ops {
		if other == op {
			return conflict("two instructions of the same operation cannot coexist")
		}
		if incompatible(other, op) {
			return conflict("STOP AND RUN already covers STOP")
		}
	}
	return nil
}

func incompatible(a, b models.Operation) bool {
	return (a == models.OperationRunAndStop && b == models.OperationStop) ||
		(a == models.OperationStop && b == models.OperationRunAndStop)
}

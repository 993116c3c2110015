package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/daytime"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/schema"
)

// Operation is the kind of a server instruction.
type Operation string

// Operations understood by the workers. RunAndStop is stored as "STOP AND RUN".
const (
	OperationRun        Operation = "RUN"
	OperationStop       Operation = "STOP"
	OperationRunAndStop Operation = "STOP AND RUN"
)

// Operations lists every valid operation.
var Operations = []Operation{OperationRun, OperationStop, OperationRunAndStop}

// Weekday bounds; 0 is Monday.
const (
	MinWeekday = 0
	MaxWeekday = 6
)

// ParseOperation maps a stored or symbolic name to an Operation.
func ParseOperation(s string) (Operation, bool) {
	switch s {
	case string(OperationRun):
		return OperationRun, true
	case string(OperationStop):
		return OperationStop, true
	case string(OperationRunAndStop), "RUN_AND_STOP":
		return OperationRunAndStop, true
	default:
		return "", false
	}
}

// Runs reports whether the operation starts scans on a schedule.
func (o Operation) Runs() bool {
	return o == OperationRun || o == OperationRunAndStop
}

// Stops reports whether the operation carries a stop time.
func (o Operation) Stops() bool {
	return o == OperationStop || o == OperationRunAndStop
}

// ServerInstruction is a scheduling instruction the server sends to workers
// scanning a site.
type ServerInstruction struct {
	record.Base `bson:",inline"`

	Site         bson.ObjectID `bson:"site"`
	Operation    Operation     `bson:"operation"`
	StopAt       *time.Time    `bson:"stop_at,omitempty"`
	ExcludeDates []time.Time   `bson:"exclude_dates"`
	Weekdays     []int         `bson:"weekdays"`
	Times        []int         `bson:"times"`
	Running      bool          `bson:"running"`
}

func (i *ServerInstruction) Collection() string    { return CollectionServerInstructions }
func (i *ServerInstruction) UniqueLists() []string { return nil }

// Validate checks the instruction schema.
func (i *ServerInstruction) Validate() error {
	return schema.Check("ServerInstructions",
		schema.RequiredID("site", i.Site),
		schema.Required("operation", string(i.Operation)),
		schema.OneOf("operation", i.Operation, Operations...),
		schema.IntsInRange("weekdays", i.Weekdays, MinWeekday, MaxWeekday),
		schema.IntsInRange("times", i.Times, daytime.Min, daytime.Max),
	)
}

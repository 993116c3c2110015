// Package events publishes instruction lifecycle events to a Redis stream
// consumed by the crawler workers.
package events

import (
	"time"

	"github.com/google/uuid"
)

// StreamName is the Redis stream for instruction events.
const StreamName = "instruction-events"

// EventType represents the type of instruction event.
type EventType string

const (
	// InstructionCreated indicates a new server instruction was stored.
	InstructionCreated EventType = "INSTRUCTION_CREATED"
	// InstructionsRunningChanged indicates the running flag of a site's
	// instructions was flipped.
	InstructionsRunningChanged EventType = "INSTRUCTIONS_RUNNING_CHANGED"
)

// InstructionEvent is the envelope for all instruction events. Identities are
// hex-encoded ObjectIDs.
type InstructionEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`
	SiteID    string    `json:"site_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// InstructionCreatedPayload contains data for INSTRUCTION_CREATED events.
type InstructionCreatedPayload struct {
	InstructionID string     `json:"instruction_id"`
	Operation     string     `json:"operation"`
	Times         []int      `json:"times,omitempty"`
	Weekdays      []int      `json:"weekdays,omitempty"`
	StopAt        *time.Time `json:"stop_at,omitempty"`
}

// RunningChangedPayload contains data for INSTRUCTIONS_RUNNING_CHANGED events.
type RunningChangedPayload struct {
	InstructionIDs []string `json:"instruction_ids"`
	Running        bool     `json:"running"`
}

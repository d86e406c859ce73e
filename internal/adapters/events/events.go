// Package events defines the plan events published downstream and the Kafka
// producer that delivers them.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event types.
const (
	TypePlanAssigned = "plan.assigned"
	TypePlanDeleted  = "plan.deleted"
)

// SchemaVersion is stamped on every event.
const SchemaVersion = "v1"

// ErrUnknownEvent is returned when an envelope carries an unsupported type.
var ErrUnknownEvent = errors.New("unknown event type")

// PlanAssigned is emitted after a plan is assigned to a client.
type PlanAssigned struct {
	AssignmentID   string    `json:"assignment_id"`
	ClientUsername string    `json:"client_username"`
	WorkoutID      string    `json:"workout_id"`
	PlanName       string    `json:"plan_name"`
	AssignedAt     time.Time `json:"assigned_at"`
	Version        string    `json:"version"`
}

// PlanDeleted is emitted after a plan record is removed. Assignments that
// still reference it are left in place.
type PlanDeleted struct {
	WorkoutID string    `json:"workout_id"`
	DeletedBy string    `json:"deleted_by,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
	Version   string    `json:"version"`
}

// Envelope is what the outbox stores for a plan event: the type, the
// partition key and the encoded event.
type Envelope struct {
	Type    string          `json:"type"`
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope encodes ev under its event type. Events are keyed by workout
// id so every event for one plan lands on the same partition.
func NewEnvelope(ev any) (Envelope, error) {
	var typ, key string
	switch e := ev.(type) {
	case PlanAssigned:
		typ, key = TypePlanAssigned, e.WorkoutID
	case PlanDeleted:
		typ, key = TypePlanDeleted, e.WorkoutID
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typ, Key: key, Payload: payload}, nil
}

// Validate checks an envelope decoded from the outbox.
func (e Envelope) Validate() error {
	switch e.Type {
	case TypePlanAssigned, TypePlanDeleted:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	if len(e.Payload) == 0 {
		return errors.New("event payload is empty")
	}
	return nil
}

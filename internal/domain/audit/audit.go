package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Table names a change can belong to.
const (
	TableMembers = "members"
	TableEvents  = "events"
)

// Change represents one confirmed cell save that altered a stored value.
type Change struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Table     string    `json:"table"`
	EntityID  int64     `json:"entity_id"`
	Field     string    `json:"field"`
	Previous  string    `json:"previous"`
	Value     string    `json:"value"`
	Actor     string    `json:"actor"`
	RequestID string    `json:"request_id,omitempty"`
}

// Domain errors
var (
	ErrUnknownTable  = errors.New("change table must be 'members' or 'events'")
	ErrEntityMissing = errors.New("change must name a row")
	ErrFieldMissing  = errors.New("change must name a field")
)

// NewChange creates a change stamped with the current UTC time.
// PRE: entityID > 0, field is non-empty
// POST: Returns a Change with a fresh ID
func NewChange(table string, entityID int64, field, previous, value string) Change {
	return Change{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Table:     table,
		EntityID:  entityID,
		Field:     field,
		Previous:  previous,
		Value:     value,
	}
}

// WithActor sets who made the change and the save request it came from.
func (c Change) WithActor(actor, requestID string) Change {
	c.Actor = actor
	c.RequestID = requestID
	return c
}

// Validate checks the change names a known table, a row and a field.
// PRE: none
// POST: Returns nil if valid
func (c Change) Validate() error {
	if c.Table != TableMembers && c.Table != TableEvents {
		return ErrUnknownTable
	}
	if c.EntityID <= 0 {
		return ErrEntityMissing
	}
	if c.Field == "" {
		return ErrFieldMissing
	}
	return nil
}

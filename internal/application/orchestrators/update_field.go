package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"clubadmin/internal/domain/audit"
	"clubadmin/internal/domain/calendar"
	"clubadmin/internal/domain/member"
)

// ErrEntityIDRequired is returned when a field update names no row.
var ErrEntityIDRequired = errors.New("entity ID is required")

// RejectedError wraps a failure caused by the submitted value or the row it
// targets. Its message is safe to show to the editor; any other error is
// internal.
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string { return e.Err.Error() }

func (e *RejectedError) Unwrap() error { return e.Err }

// reject wraps err as a RejectedError.
func reject(err error) error {
	return &RejectedError{Err: err}
}

// IsRejected reports whether err is a RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// MemberStoreForUpdate defines the store interface needed by UpdateMemberField.
type MemberStoreForUpdate interface {
	GetByID(ctx context.Context, id int64) (member.Member, error)
	UpdateField(ctx context.Context, m member.Member, field string) error
}

// EventStoreForUpdate defines the store interface needed by UpdateEventField.
type EventStoreForUpdate interface {
	GetByID(ctx context.Context, id int64) (calendar.Event, error)
	UpdateField(ctx context.Context, e calendar.Event, field string) error
}

// ChangeRecorder stores the history of confirmed saves.
type ChangeRecorder interface {
	Save(ctx context.Context, change audit.Change) error
}

// UpdateFieldInput carries one submitted cell value.
type UpdateFieldInput struct {
	EntityID  int64
	Field     string
	Value     string
	Actor     string // session or API key label, for the audit line
	RequestID string
}

// UpdateFieldResult carries the value actually stored.
type UpdateFieldResult struct {
	Value    string
	Previous string
}

// UpdateMemberFieldDeps holds dependencies for UpdateMemberField.
type UpdateMemberFieldDeps struct {
	MemberStore MemberStoreForUpdate
	ChangeLog   ChangeRecorder // optional
}

// ExecuteUpdateMemberField stores one member field.
// PRE: EntityID > 0; Field is an editable member field
// POST: Only the column of Field is written; the normalised value is returned;
// on error nothing is written
func ExecuteUpdateMemberField(ctx context.Context, input UpdateFieldInput, deps UpdateMemberFieldDeps) (UpdateFieldResult, error) {
	if input.EntityID <= 0 {
		return UpdateFieldResult{}, reject(ErrEntityIDRequired)
	}

	m, err := deps.MemberStore.GetByID(ctx, input.EntityID)
	if errors.Is(err, member.ErrNotFound) {
		return UpdateFieldResult{}, reject(err)
	}
	if err != nil {
		return UpdateFieldResult{}, err
	}
	previous := m.Row()[input.Field]

	value, err := m.SetField(input.Field, input.Value)
	if err != nil {
		return UpdateFieldResult{}, reject(err)
	}
	if err := m.Validate(); err != nil {
		return UpdateFieldResult{}, reject(err)
	}
	if err := deps.MemberStore.UpdateField(ctx, m, input.Field); errors.Is(err, member.ErrNotFound) {
		return UpdateFieldResult{}, reject(err)
	} else if err != nil {
		return UpdateFieldResult{}, err
	}

	slog.Info("member_event",
		"event", "member_field_updated",
		"member_id", input.EntityID,
		"field", input.Field,
		"actor", input.Actor,
		"request_id", input.RequestID,
		"changed", previous != value,
	)
	recordChange(ctx, deps.ChangeLog, audit.TableMembers, input, previous, value)
	return UpdateFieldResult{Value: value, Previous: previous}, nil
}

// UpdateEventFieldDeps holds dependencies for UpdateEventField.
type UpdateEventFieldDeps struct {
	EventStore EventStoreForUpdate
	ChangeLog  ChangeRecorder // optional
}

// ExecuteUpdateEventField stores one event list field.
// PRE: EntityID > 0; Field is an editable event field applicable to the row
// POST: Only the column of Field is written; the normalised value is returned;
// on error nothing is written
func ExecuteUpdateEventField(ctx context.Context, input UpdateFieldInput, deps UpdateEventFieldDeps) (UpdateFieldResult, error) {
	if input.EntityID <= 0 {
		return UpdateFieldResult{}, reject(ErrEntityIDRequired)
	}

	e, err := deps.EventStore.GetByID(ctx, input.EntityID)
	if errors.Is(err, calendar.ErrNotFound) {
		return UpdateFieldResult{}, reject(err)
	}
	if err != nil {
		return UpdateFieldResult{}, err
	}
	previous := e.Row()[input.Field]

	value, err := e.SetField(input.Field, input.Value)
	if err != nil {
		return UpdateFieldResult{}, reject(err)
	}
	if err := e.Validate(); err != nil {
		return UpdateFieldResult{}, reject(err)
	}
	if err := deps.EventStore.UpdateField(ctx, e, input.Field); errors.Is(err, calendar.ErrNotFound) {
		return UpdateFieldResult{}, reject(err)
	} else if err != nil {
		return UpdateFieldResult{}, err
	}

	slog.Info("calendar_event",
		"event", "event_field_updated",
		"event_id", input.EntityID,
		"field", input.Field,
		"actor", input.Actor,
		"request_id", input.RequestID,
		"changed", previous != value,
	)
	recordChange(ctx, deps.ChangeLog, audit.TableEvents, input, previous, value)
	return UpdateFieldResult{Value: value, Previous: previous}, nil
}

// recordChange appends a changed value to the history. The row is already
// saved, so a failure here is logged and not returned.
func recordChange(ctx context.Context, changes ChangeRecorder, table string, input UpdateFieldInput, previous, value string) {
	if changes == nil || previous == value {
		return
	}
	change := audit.NewChange(table, input.EntityID, input.Field, previous, value).WithActor(input.Actor, input.RequestID)
	if err := changes.Save(ctx, change); err != nil {
		slog.Error("internal_error",
			"error", err.Error(),
			"event", "field_change_not_recorded",
			"table", table,
			"entity_id", input.EntityID,
			"field", input.Field,
		)
	}
}

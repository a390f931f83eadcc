package calendar

import (
	"errors"
	"fmt"
	"strings"

	"clubadmin/internal/domain/fieldvalue"
)

// Row type constants.
const (
	RowEvent = "event" // a dated club event
	RowTitle = "title" // a section heading in the event list
)

// Status constants.
const (
	StatusDraft     = "draft"
	StatusOpen      = "open"
	StatusClosed    = "closed"
	StatusCancelled = "cancelled"
)

// Max length constants.
const (
	MaxTitleLength    = 200
	MaxLocationLength = 200
)

// Editable field names, as used by the event list.
const (
	FieldTitle                = "title"
	FieldRowType              = "row_type"
	FieldEventDate            = "event_date"
	FieldLocation             = "location"
	FieldContactEmail         = "contact_email"
	FieldStatus               = "status"
	FieldRegistrationRequired = "registration_required"
	FieldRequiresPayment      = "requires_payment"
	FieldPaymentDeadline      = "payment_deadline"
)

// Statuses lists the allowed statuses in display order.
var Statuses = []string{StatusDraft, StatusOpen, StatusClosed, StatusCancelled}

// Domain errors
var (
	ErrUnknownField  = errors.New("unknown event field")
	ErrNotFound      = errors.New("event not found")
	ErrNotApplicable = errors.New("field does not apply to this row")
)

// Event represents one line of the club event list.
// PRE: Title is non-empty. RowType is "event" or "title".
// INVARIANT: a title row carries no registration or payment requirement.
type Event struct {
	ID                   int64
	Title                string
	RowType              string
	EventDate            string // YYYY-MM-DD, empty for title rows
	Location             string
	ContactEmail         string
	Status               string
	RegistrationRequired bool
	RequiresPayment      bool
	PaymentDeadline      string
}

// Validate checks the event's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("event title cannot be empty")
	}
	if len(e.Title) > MaxTitleLength {
		return errors.New("event title cannot exceed 200 characters")
	}
	if e.RowType != RowEvent && e.RowType != RowTitle {
		return errors.New("row type must be 'event' or 'title'")
	}
	if _, err := fieldvalue.Choice(e.Status, Statuses...); err != nil {
		return errors.New("status must be 'draft', 'open', 'closed' or 'cancelled'")
	}
	if len(e.Location) > MaxLocationLength {
		return errors.New("event location cannot exceed 200 characters")
	}
	if _, err := fieldvalue.Email(e.ContactEmail, false); err != nil {
		return fmt.Errorf("event contact email: %w", err)
	}
	if e.RowType == RowTitle && (e.RegistrationRequired || e.RequiresPayment) {
		return errors.New("a title row cannot require registration or payment")
	}
	if e.PaymentDeadline != "" && e.EventDate != "" && e.PaymentDeadline > e.EventDate {
		return errors.New("payment deadline cannot be after the event date")
	}
	return nil
}

// IsTitle returns true if the row is a section heading.
// INVARIANT: Event is not mutated
func (e *Event) IsTitle() bool {
	return e.RowType == RowTitle
}

// SetField assigns one field from a raw submitted value and returns the
// canonical value that was stored.
// PRE: field is one of the Field* constants
// POST: On error the event is unchanged
func (e *Event) SetField(field, raw string) (string, error) {
	var (
		v   string
		err error
	)
	switch field {
	case FieldTitle:
		if v, err = fieldvalue.Text(raw, MaxTitleLength, true); err == nil {
			e.Title = v
		}
	case FieldRowType:
		if v, err = fieldvalue.Choice(raw, RowEvent, RowTitle); err == nil {
			e.RowType = v
			if v == RowTitle {
				e.RegistrationRequired = false
				e.RequiresPayment = false
			}
		}
	case FieldEventDate:
		if v, err = fieldvalue.Date(raw, false); err == nil {
			e.EventDate = v
		}
	case FieldLocation:
		if v, err = fieldvalue.Text(raw, MaxLocationLength, false); err == nil {
			e.Location = v
		}
	case FieldContactEmail:
		if v, err = fieldvalue.Email(raw, false); err == nil {
			e.ContactEmail = v
		}
	case FieldStatus:
		if v, err = fieldvalue.Choice(raw, Statuses...); err == nil {
			e.Status = v
		}
	case FieldRegistrationRequired:
		if e.IsTitle() {
			return "", fmt.Errorf("%s: %w", field, ErrNotApplicable)
		}
		if v, err = fieldvalue.Bool(raw); err == nil {
			e.RegistrationRequired = v == "1"
		}
	case FieldRequiresPayment:
		if e.IsTitle() {
			return "", fmt.Errorf("%s: %w", field, ErrNotApplicable)
		}
		if v, err = fieldvalue.Bool(raw); err == nil {
			e.RequiresPayment = v == "1"
		}
	case FieldPaymentDeadline:
		if !e.RequiresPayment {
			return "", fmt.Errorf("%s: %w", field, ErrNotApplicable)
		}
		if v, err = fieldvalue.Date(raw, false); err == nil {
			e.PaymentDeadline = v
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// Row returns the raw values of every editable field keyed by field name.
func (e *Event) Row() map[string]string {
	return map[string]string{
		FieldTitle:                e.Title,
		FieldRowType:              e.RowType,
		FieldEventDate:            e.EventDate,
		FieldLocation:             e.Location,
		FieldContactEmail:         e.ContactEmail,
		FieldStatus:               e.Status,
		FieldRegistrationRequired: fieldvalue.FormatBool(e.RegistrationRequired),
		FieldRequiresPayment:      fieldvalue.FormatBool(e.RequiresPayment),
		FieldPaymentDeadline:      e.PaymentDeadline,
	}
}

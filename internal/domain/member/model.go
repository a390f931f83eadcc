package member

import (
	"errors"
	"fmt"
	"strings"

	"clubadmin/internal/domain/fieldvalue"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength  = 100
	MaxPhoneLength = 30
)

// Business rule constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
	StatusArchived = "archived"

	RoleMember    = "member"
	RoleVolunteer = "volunteer"
	RoleBoard     = "board"
	RoleCoach     = "coach"
)

// Editable field names, as used by the member list.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldBirthDate       = "birth_date"
	FieldStatus          = "status"
	FieldRole            = "role"
	FieldPaymentRequired = "payment_required"
	FieldPaymentDate     = "payment_date"
)

// Statuses lists the allowed statuses in display order.
var Statuses = []string{StatusActive, StatusInactive, StatusPending, StatusArchived}

// Roles lists the allowed roles in display order.
var Roles = []string{RoleMember, RoleVolunteer, RoleCoach, RoleBoard}

// Domain errors
var (
	ErrUnknownField = errors.New("unknown member field")
	ErrNotFound     = errors.New("member not found")
)

// Member holds state for the concept.
type Member struct {
	ID              int64
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	BirthDate       string
	Status          string
	Role            string
	PaymentRequired bool
	PaymentDate     string
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: LastName must not be empty, Email must be empty or a valid address
func (m *Member) Validate() error {
	if strings.TrimSpace(m.LastName) == "" {
		return errors.New("member last name cannot be empty")
	}
	if len(m.FirstName) > MaxNameLength || len(m.LastName) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if _, err := fieldvalue.Email(m.Email, false); err != nil {
		return fmt.Errorf("member email: %w", err)
	}
	if _, err := fieldvalue.Choice(m.Status, Statuses...); err != nil {
		return errors.New("status must be 'active', 'inactive', 'pending' or 'archived'")
	}
	if _, err := fieldvalue.Choice(m.Role, Roles...); err != nil {
		return errors.New("role must be 'member', 'volunteer', 'coach' or 'board'")
	}
	if m.BirthDate != "" {
		if _, err := fieldvalue.Date(m.BirthDate, false); err != nil {
			return fmt.Errorf("member birth date: %w", err)
		}
	}
	if m.PaymentDate != "" {
		if _, err := fieldvalue.Date(m.PaymentDate, false); err != nil {
			return fmt.Errorf("member payment date: %w", err)
		}
	}
	return nil
}

// IsActive returns true if the member is currently active.
// INVARIANT: Status field is not mutated
func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// SetField assigns one field from a raw submitted value and returns the
// canonical value that was stored.
// PRE: field is one of the Field* constants
// POST: On error the member is unchanged
func (m *Member) SetField(field, raw string) (string, error) {
	var (
		v   string
		err error
	)
	switch field {
	case FieldFirstName:
		if v, err = fieldvalue.Text(raw, MaxNameLength, false); err == nil {
			m.FirstName = v
		}
	case FieldLastName:
		if v, err = fieldvalue.Text(raw, MaxNameLength, true); err == nil {
			m.LastName = v
		}
	case FieldEmail:
		if v, err = fieldvalue.Email(raw, false); err == nil {
			m.Email = v
		}
	case FieldPhone:
		if v, err = fieldvalue.Text(raw, MaxPhoneLength, false); err == nil {
			m.Phone = v
		}
	case FieldBirthDate:
		if v, err = fieldvalue.Date(raw, false); err == nil {
			m.BirthDate = v
		}
	case FieldStatus:
		if v, err = fieldvalue.Choice(raw, Statuses...); err == nil {
			m.Status = v
		}
	case FieldRole:
		if v, err = fieldvalue.Choice(raw, Roles...); err == nil {
			m.Role = v
		}
	case FieldPaymentRequired:
		if v, err = fieldvalue.Bool(raw); err == nil {
			m.PaymentRequired = v == "1"
		}
	case FieldPaymentDate:
		if !m.PaymentRequired {
			return "", errors.New("payment date does not apply when no payment is required")
		}
		if v, err = fieldvalue.Date(raw, false); err == nil {
			m.PaymentDate = v
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
// INVARIANT: Member is not mutated
func (m *Member) Row() map[string]string {
	return map[string]string{
		FieldFirstName:       m.FirstName,
		FieldLastName:        m.LastName,
		FieldEmail:           m.Email,
		FieldPhone:           m.Phone,
		FieldBirthDate:       m.BirthDate,
		FieldStatus:          m.Status,
		FieldRole:            m.Role,
		FieldPaymentRequired: fieldvalue.FormatBool(m.PaymentRequired),
		FieldPaymentDate:     m.PaymentDate,
	}
}

// DisplayName returns "First Last", or the last name alone.
func (m *Member) DisplayName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

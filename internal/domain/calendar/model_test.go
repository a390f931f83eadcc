package calendar

import (
	"errors"
	"strings"
	"testing"
)

func validEvent() Event {
	return Event{
		ID:        7,
		Title:     "Assemblée générale",
		RowType:   RowEvent,
		EventDate: "2026-11-20",
		Status:    StatusOpen,
	}
}

// TestEvent_Validate tests Event validation rules.
func TestEvent_Validate(t *testing.T) {
	valid := validEvent()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid event, got: %v", err)
	}

	tests := []struct {
		name    string
		modify  func(e *Event)
		wantErr string
	}{
		{"empty title", func(e *Event) { e.Title = "" }, "title cannot be empty"},
		{"title too long", func(e *Event) { e.Title = strings.Repeat("x", MaxTitleLength+1) }, "title cannot exceed"},
		{"invalid row type", func(e *Event) { e.RowType = "party" }, "row type must be"},
		{"invalid status", func(e *Event) { e.Status = "maybe" }, "status must be"},
		{"location too long", func(e *Event) { e.Location = strings.Repeat("x", MaxLocationLength+1) }, "location cannot exceed"},
		{"bad contact", func(e *Event) { e.ContactEmail = "nobody" }, "contact email"},
		{"title with registration", func(e *Event) {
			e.RowType = RowTitle
			e.RegistrationRequired = true
		}, "title row cannot"},
		{"deadline after event", func(e *Event) {
			e.RequiresPayment = true
			e.PaymentDeadline = "2026-12-01"
		}, "deadline cannot be after"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := validEvent()
			tc.modify(&e)
			err := e.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

// TestEvent_SetField tests normalisation and applicability of event fields.
func TestEvent_SetField(t *testing.T) {
	t.Run("registration not applicable to title rows", func(t *testing.T) {
		e := validEvent()
		e.RowType = RowTitle
		_, err := e.SetField(FieldRegistrationRequired, "1")
		if !errors.Is(err, ErrNotApplicable) {
			t.Errorf("error = %v, want ErrNotApplicable", err)
		}
	})

	t.Run("payment deadline gated on requires_payment", func(t *testing.T) {
		e := validEvent()
		if _, err := e.SetField(FieldPaymentDeadline, "2026-11-01"); !errors.Is(err, ErrNotApplicable) {
			t.Fatalf("error = %v, want ErrNotApplicable", err)
		}
		if _, err := e.SetField(FieldRequiresPayment, "yes"); err != nil {
			t.Fatalf("SetField(requires_payment) error = %v", err)
		}
		got, err := e.SetField(FieldPaymentDeadline, "01/11/2026")
		if err != nil {
			t.Fatalf("SetField(payment_deadline) error = %v", err)
		}
		if got != "2026-11-01" {
			t.Errorf("deadline = %q", got)
		}
	})

	t.Run("switching to title clears requirements", func(t *testing.T) {
		e := validEvent()
		e.RegistrationRequired = true
		e.RequiresPayment = true
		if _, err := e.SetField(FieldRowType, RowTitle); err != nil {
			t.Fatalf("SetField(row_type) error = %v", err)
		}
		if e.RegistrationRequired || e.RequiresPayment {
			t.Errorf("title row kept requirements: %+v", e)
		}
		if err := e.Validate(); err != nil {
			t.Errorf("Validate() after switch = %v", err)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		e := validEvent()
		if _, err := e.SetField("capacity", "10"); !errors.Is(err, ErrUnknownField) {
			t.Errorf("error = %v, want ErrUnknownField", err)
		}
	})

	t.Run("row reflects canonical values", func(t *testing.T) {
		e := validEvent()
		if _, err := e.SetField(FieldContactEmail, " Info@Club.FR "); err != nil {
			t.Fatal(err)
		}
		row := e.Row()
		if row[FieldContactEmail] != "info@club.fr" {
			t.Errorf("contact_email = %q", row[FieldContactEmail])
		}
		if row[FieldRegistrationRequired] != "0" {
			t.Errorf("registration_required = %q", row[FieldRegistrationRequired])
		}
	})
}

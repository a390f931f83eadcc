package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clubadmin/internal/adapters/storage"
	domain "clubadmin/internal/domain/calendar"
)

const eventColumns = "id, title, row_type, event_date, location, contact_email, status, registration_required, requires_payment, payment_deadline"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new event Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (domain.Event, error) {
	var e domain.Event
	var registration, payment int
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.RowType,
		&e.EventDate,
		&e.Location,
		&e.ContactEmail,
		&e.Status,
		&registration,
		&payment,
		&e.PaymentDeadline,
	)
	e.RegistrationRequired = registration != 0
	e.RequiresPayment = payment != 0
	return e, err
}

// GetByID retrieves an event by its ID.
// PRE: id > 0
// POST: Returns the event or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM event WHERE id = ?", id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("event %d: %w", id, domain.ErrNotFound)
	}
	return e, err
}

// Create appends an event at the end of the list and assigns its ID.
// PRE: e has been validated, e.ID == 0
// POST: e.ID holds the new row id
func (s *SQLiteStore) Create(ctx context.Context, e *domain.Event) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO event (position, title, row_type, event_date, location, contact_email, status, registration_required, requires_payment, payment_deadline)
		 VALUES ((SELECT COALESCE(MAX(position), 0) + 1 FROM event), ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.RowType, e.EventDate, e.Location, e.ContactEmail, e.Status,
		boolInt(e.RegistrationRequired), boolInt(e.RequiresPayment), e.PaymentDeadline,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// fieldColumns holds the columns UpdateField may write, keyed by field name.
var fieldColumns = map[string]func(domain.Event) any{
	domain.FieldTitle:                func(e domain.Event) any { return e.Title },
	domain.FieldRowType:              func(e domain.Event) any { return e.RowType },
	domain.FieldEventDate:            func(e domain.Event) any { return e.EventDate },
	domain.FieldLocation:             func(e domain.Event) any { return e.Location },
	domain.FieldContactEmail:         func(e domain.Event) any { return e.ContactEmail },
	domain.FieldStatus:               func(e domain.Event) any { return e.Status },
	domain.FieldRegistrationRequired: func(e domain.Event) any { return boolInt(e.RegistrationRequired) },
	domain.FieldRequiresPayment:      func(e domain.Event) any { return boolInt(e.RequiresPayment) },
	domain.FieldPaymentDeadline:      func(e domain.Event) any { return e.PaymentDeadline },
}

// UpdateField writes the single column of field from e.
// PRE: e.ID > 0; field is one of the domain Field* constants
// POST: only column field of row e.ID changed; a missing row wraps domain.ErrNotFound
func (s *SQLiteStore) UpdateField(ctx context.Context, e domain.Event, field string) error {
	value, ok := fieldColumns[field]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownField, field)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE event SET "+field+" = ? WHERE id = ?", value(e), e.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", e.ID, domain.ErrNotFound)
	}
	return nil
}

// List returns every event in list order.
// PRE: none
// POST: Returns events ordered by position then id
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM event ORDER BY position, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package audit

import (
	"context"
	"database/sql"
	"time"

	"clubadmin/internal/adapters/storage"
	domain "clubadmin/internal/domain/audit"
)

// dateLayout has a fixed width so timestamps sort as text.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

const changeColumns = "id, timestamp, table_name, entity_id, field, previous, value, actor, request_id"

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new change store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists a change.
// PRE: change is valid
// POST: Change is persisted
func (s *SQLiteStore) Save(ctx context.Context, change domain.Change) error {
	if err := change.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO field_change (`+changeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		change.ID, change.Timestamp.UTC().Format(dateLayout), change.Table, change.EntityID,
		change.Field, change.Previous, change.Value, change.Actor, change.RequestID)
	return err
}

// List returns changes with optional filtering.
// PRE: limit > 0
// POST: Returns changes ordered newest first
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Change, error) {
	query := `SELECT ` + changeColumns + ` FROM field_change WHERE 1=1`
	args := []any{}

	if filter.Table != "" {
		query += " AND table_name = ?"
		args = append(args, filter.Table)
	}
	if filter.EntityID > 0 {
		query += " AND entity_id = ?"
		args = append(args, filter.EntityID)
	}
	if filter.Field != "" {
		query += " AND field = ?"
		args = append(args, filter.Field)
	}

	query += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []domain.Change
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func scanChange(rows *sql.Rows) (domain.Change, error) {
	var c domain.Change
	var timestamp string
	err := rows.Scan(&c.ID, &timestamp, &c.Table, &c.EntityID, &c.Field, &c.Previous, &c.Value, &c.Actor, &c.RequestID)
	if err != nil {
		return domain.Change{}, err
	}
	c.Timestamp, _ = time.Parse(dateLayout, timestamp)
	return c, nil
}

package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"clubadmin/internal/adapters/storage"
	domain "clubadmin/internal/domain/member"
)

const memberColumns = "id, first_name, last_name, email, phone, birth_date, status, role, payment_required, payment_date"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (domain.Member, error) {
	var m domain.Member
	var paymentRequired int
	err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Phone,
		&m.BirthDate, &m.Status, &m.Role, &paymentRequired, &m.PaymentDate)
	m.PaymentRequired = paymentRequired != 0
	return m, err
}

// GetByID retrieves a Member by its ID.
// PRE: id > 0
// POST: Returns the entity or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("member %d: %w", id, domain.ErrNotFound)
	}
	return m, err
}

// values lists m's columns in insertMember order.
func values(m domain.Member) []any {
	return []any{
		m.FirstName, m.LastName, m.Email, m.Phone, m.BirthDate,
		m.Status, m.Role, boolInt(m.PaymentRequired), m.PaymentDate,
	}
}

const insertMember = `INSERT INTO member
	(first_name, last_name, email, phone, birth_date, status, role, payment_required, payment_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Create inserts a new Member and assigns its ID.
// PRE: value has been validated, value.ID == 0
// POST: value.ID holds the new row id
func (s *SQLiteStore) Create(ctx context.Context, value *domain.Member) error {
	res, err := s.db.ExecContext(ctx, insertMember, values(*value)...)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	if value.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// fieldColumns holds the columns UpdateField may write, keyed by field name,
// with the column value taken from the member.
var fieldColumns = map[string]func(domain.Member) any{
	domain.FieldFirstName:       func(m domain.Member) any { return m.FirstName },
	domain.FieldLastName:        func(m domain.Member) any { return m.LastName },
	domain.FieldEmail:           func(m domain.Member) any { return m.Email },
	domain.FieldPhone:           func(m domain.Member) any { return m.Phone },
	domain.FieldBirthDate:       func(m domain.Member) any { return m.BirthDate },
	domain.FieldStatus:          func(m domain.Member) any { return m.Status },
	domain.FieldRole:            func(m domain.Member) any { return m.Role },
	domain.FieldPaymentRequired: func(m domain.Member) any { return boolInt(m.PaymentRequired) },
	domain.FieldPaymentDate:     func(m domain.Member) any { return m.PaymentDate },
}

// UpdateField writes the single column of field from m, leaving every other
// column as stored. Concurrent updates of different fields of one row
// therefore never overwrite each other.
// PRE: m.ID > 0; field is one of the domain Field* constants
// POST: only column field of row m.ID changed; a missing row wraps domain.ErrNotFound
func (s *SQLiteStore) UpdateField(ctx context.Context, m domain.Member, field string) error {
	value, ok := fieldColumns[field]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownField, field)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE member SET "+field+" = ? WHERE id = ?", value(m), m.ID)
	if err != nil {
		return fmt.Errorf("update member %d %s: %w", m.ID, field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member %d %s: %w", m.ID, field, err)
	}
	if n == 0 {
		return fmt.Errorf("member %d: %w", m.ID, domain.ErrNotFound)
	}
	return nil
}

// orderBy maps list sort keys to their columns. Ties always break on id.
var orderBy = map[string][]string{
	"name":       {"last_name", "first_name"},
	"email":      {"email"},
	"status":     {"status"},
	"role":       {"role"},
	"birth_date": {"birth_date"},
}

// where renders the filter as a WHERE clause with its arguments.
func where(filter ListFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conds = append(conds, "(first_name LIKE ? OR last_name LIKE ? OR email LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// order renders the ORDER BY clause. Unknown keys fall back to name order.
func order(filter ListFilter) string {
	cols, ok := orderBy[filter.Sort]
	dir := "ASC"
	if !ok {
		cols = orderBy["name"]
	} else if filter.Dir == "desc" {
		dir = "DESC"
	}
	terms := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		terms = append(terms, c+" "+dir)
	}
	return " ORDER BY " + strings.Join(append(terms, "id ASC"), ", ")
}

// Count returns the number of members matching the filter, ignoring paging.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	clause, args := where(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member"+clause, args...).Scan(&n)
	return n, err
}

// defaultListLimit caps List when the filter sets no limit.
const defaultListLimit = 1000

// List returns one page of members matching the filter.
// PRE: filter.Offset >= 0
// POST: at most filter.Limit members (defaultListLimit when unset), in sort order
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	clause, args := where(filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM member"+clause+order(filter)+" LIMIT ? OFFSET ?",
		append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

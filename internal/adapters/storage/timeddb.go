package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// SQLDB is what every store needs from a database handle. *sql.DB and
// *TimedDB both satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// DefaultSlowQuery is the threshold used when none is configured.
const DefaultSlowQuery = 50 * time.Millisecond

// QueryStats counts statements issued through a TimedDB.
type QueryStats struct {
	Queries int64
	Slow    int64
	Errors  int64
}

// TimedDB logs statement durations of a *sql.DB and counts them. Statements
// at or above the threshold log as slow_query at WARN, the rest at DEBUG.
type TimedDB struct {
	db        *sql.DB
	threshold time.Duration

	queries, slow, errs atomic.Int64
}

// NewTimedDB wraps db.
// PRE: db is open
// POST: a threshold <= 0 is replaced by DefaultSlowQuery
func NewTimedDB(db *sql.DB, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, threshold: threshold}
}

// Stats returns the counters accumulated since NewTimedDB.
func (t *TimedDB) Stats() QueryStats {
	return QueryStats{Queries: t.queries.Load(), Slow: t.slow.Load(), Errors: t.errs.Load()}
}

// statementKind returns the leading SQL keyword in upper case.
func statementKind(query string) string {
	kind, _, _ := strings.Cut(strings.TrimSpace(query), " ")
	kind, _, _ = strings.Cut(kind, "\n")
	return strings.ToUpper(strings.TrimSpace(kind))
}

// timed runs fn and records how long it took.
func (t *TimedDB) timed(op, query string, fn func() error) {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	t.queries.Add(1)
	if err != nil {
		t.errs.Add(1)
	}
	level, msg := slog.LevelDebug, "query"
	if elapsed >= t.threshold {
		t.slow.Add(1)
		level, msg = slog.LevelWarn, "slow_query"
	}
	slog.Log(context.Background(), level, msg,
		"op", op,
		"statement", statementKind(query),
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)
}

func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (res sql.Result, err error) {
	t.timed("exec", query, func() error {
		res, err = t.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (rows *sql.Rows, err error) {
	t.timed("query", query, func() error {
		rows, err = t.db.QueryContext(ctx, query, args...)
		return err
	})
	return rows, err
}

// QueryRowContext is timed like the others, but its error only surfaces on
// Scan and is not counted.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) (row *sql.Row) {
	t.timed("query_row", query, func() error {
		row = t.db.QueryRowContext(ctx, query, args...)
		return nil
	})
	return row
}

// Ping reports whether the database answers.
func (t *TimedDB) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"clubadmin/internal/adapters/storage"
	domain "clubadmin/internal/domain/audit"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return NewSQLiteStore(db)
}

// TestSQLiteStore_SaveAndList verifies changes come back newest first with
// every column intact.
func TestSQLiteStore_SaveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	first := domain.NewChange(domain.TableMembers, 7, "email", "", "jeanne@example.org").WithActor("Claire", "req-1")
	first.Timestamp = base
	second := domain.NewChange(domain.TableMembers, 7, "status", "pending", "active").WithActor("Claire", "req-2")
	second.Timestamp = base.Add(1500 * time.Millisecond)
	other := domain.NewChange(domain.TableEvents, 7, "status", "draft", "open")
	other.Timestamp = base.Add(time.Second)

	for _, c := range []domain.Change{first, second, other} {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.List(ctx, Filter{Table: domain.TableMembers, EntityID: 7}, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List returned %d changes, want 2", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("order = %s, %s; want newest first", got[0].Field, got[1].Field)
	}
	if got[1] != first {
		t.Errorf("round trip = %+v, want %+v", got[1], first)
	}
}

// TestSQLiteStore_ListFilters verifies each filter narrows the result and the
// limit is honoured.
func TestSQLiteStore_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, f := range []string{"email", "email", "phone"} {
		c := domain.NewChange(domain.TableMembers, int64(1+i%2), f, "", "x")
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		limit  int
		want   int
	}{
		{"all", Filter{}, 10, 3},
		{"by entity", Filter{EntityID: 1}, 10, 2},
		{"by field", Filter{Field: "email"}, 10, 2},
		{"by table", Filter{Table: domain.TableEvents}, 10, 0},
		{"limit", Filter{}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter, tt.limit)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List = %d changes, want %d", len(got), tt.want)
			}
		})
	}
}

// TestSQLiteStore_SaveRejectsInvalid verifies invalid changes never reach the table.
func TestSQLiteStore_SaveRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(context.Background(), domain.NewChange("invoices", 1, "total", "", "3"))
	if !errors.Is(err, domain.ErrUnknownTable) {
		t.Errorf("Save error = %v, want ErrUnknownTable", err)
	}
}

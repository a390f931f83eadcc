package member

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"clubadmin/internal/adapters/storage"
	domain "clubadmin/internal/domain/member"
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

func seed(t *testing.T, s *SQLiteStore, m domain.Member) domain.Member {
	t.Helper()
	if err := s.Create(context.Background(), &m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return m
}

// TestSQLiteStore_CreateAndGet verifies a created member round-trips with its new ID.
func TestSQLiteStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	m := seed(t, s, domain.Member{
		FirstName:       "Jeanne",
		LastName:        "Martin",
		Email:           "jeanne@example.com",
		BirthDate:       "1990-04-12",
		Status:          domain.StatusActive,
		Role:            domain.RoleMember,
		PaymentRequired: true,
		PaymentDate:     "2026-09-01",
	})
	if m.ID == 0 {
		t.Fatal("Create did not assign an ID")
	}

	got, err := s.GetByID(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != m {
		t.Errorf("GetByID = %+v, want %+v", got, m)
	}
}

// TestSQLiteStore_UpdateField verifies only the named column is written.
func TestSQLiteStore_UpdateField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := seed(t, s, domain.Member{LastName: "Martin", Email: "l.martin@example.org", Status: domain.StatusActive, Role: domain.RoleMember})

	changed := m
	changed.PaymentRequired = true
	changed.Email = "ignored@example.org"
	if err := s.UpdateField(ctx, changed, domain.FieldPaymentRequired); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	got, _ := s.GetByID(ctx, m.ID)
	if !got.PaymentRequired || got.Email != "l.martin@example.org" {
		t.Errorf("after UpdateField = %+v", got)
	}

	if err := s.UpdateField(ctx, domain.Member{ID: 404}, domain.FieldStatus); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing row error = %v, want ErrNotFound", err)
	}
	if err := s.UpdateField(ctx, m, "id = 0, status"); !errors.Is(err, domain.ErrUnknownField) {
		t.Errorf("unknown column error = %v, want ErrUnknownField", err)
	}
}

// TestSQLiteStore_UpdateField_StaleCopies verifies two writers holding the
// same stale row each keep their own field.
func TestSQLiteStore_UpdateField_StaleCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := seed(t, s, domain.Member{LastName: "Diallo", Status: domain.StatusActive, Role: domain.RoleMember})

	first, _ := s.GetByID(ctx, m.ID)
	second, _ := s.GetByID(ctx, m.ID)
	first.Status = domain.StatusInactive
	second.Role = domain.RoleCoach
	if err := s.UpdateField(ctx, first, domain.FieldStatus); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateField(ctx, second, domain.FieldRole); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetByID(ctx, m.ID)
	if got.Status != domain.StatusInactive || got.Role != domain.RoleCoach {
		t.Errorf("stored status=%q role=%q, want both writes kept", got.Status, got.Role)
	}
}

// TestSQLiteStore_GetByID_NotFound verifies the domain sentinel is wrapped.
func TestSQLiteStore_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByID(context.Background(), 404)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// TestSQLiteStore_ListAndCount verifies filtering, sorting and paging.
func TestSQLiteStore_ListAndCount(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, domain.Member{FirstName: "Zoé", LastName: "Bernard", Email: "zoe@example.com", Status: domain.StatusActive, Role: domain.RoleMember})
	seed(t, s, domain.Member{FirstName: "Adam", LastName: "Arnaud", Status: domain.StatusInactive, Role: domain.RoleBoard})
	seed(t, s, domain.Member{FirstName: "Lina", LastName: "Caron", Status: domain.StatusActive, Role: domain.RoleCoach})

	ctx := context.Background()
	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"default order by name", ListFilter{}, []string{"Arnaud", "Bernard", "Caron"}},
		{"desc", ListFilter{Sort: "name", Dir: "desc"}, []string{"Caron", "Bernard", "Arnaud"}},
		{"status filter", ListFilter{Status: domain.StatusActive}, []string{"Bernard", "Caron"}},
		{"search email", ListFilter{Search: "zoe@"}, []string{"Bernard"}},
		{"paging", ListFilter{Limit: 1, Offset: 1}, []string{"Bernard"}},
		{"unknown sort column ignored", ListFilter{Sort: "id; DROP TABLE member"}, []string{"Arnaud", "Bernard", "Caron"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var names []string
			for _, m := range got {
				names = append(names, m.LastName)
			}
			if len(names) != len(tt.want) {
				t.Fatalf("List = %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("List = %v, want %v", names, tt.want)
					break
				}
			}
		})
	}

	n, err := s.Count(ctx, ListFilter{Status: domain.StatusActive})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

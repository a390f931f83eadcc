package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	memberStore "clubadmin/internal/adapters/storage/member"
	"clubadmin/internal/domain/calendar"
	"clubadmin/internal/domain/member"
)

type seedMemberStore interface {
	Count(ctx context.Context, filter memberStore.ListFilter) (int, error)
	Create(ctx context.Context, m *member.Member) error
}

type seedEventStore interface {
	List(ctx context.Context) ([]calendar.Event, error)
	Create(ctx context.Context, e *calendar.Event) error
}

// SeedDemoDeps holds the stores filled by SeedDemo.
type SeedDemoDeps struct {
	MemberStore seedMemberStore
	EventStore  seedEventStore
}

// SeedDemoResult reports how many rows were inserted.
type SeedDemoResult struct {
	Members int
	Events  int
}

// demoMembers covers every badge, a gated payment date and an empty email.
var demoMembers = []member.Member{
	{FirstName: "Jeanne", LastName: "Martin", Email: "jeanne.martin@example.org", BirthDate: "1984-03-09", Status: member.StatusActive, Role: member.RoleBoard, PaymentRequired: true, PaymentDate: "2026-09-12"},
	{FirstName: "Hugo", LastName: "Bernard", Email: "hugo@example.org", Phone: "06 12 34 56 78", BirthDate: "2011-11-30", Status: member.StatusActive, Role: member.RoleMember, PaymentRequired: true},
	{FirstName: "Amina", LastName: "Diallo", Email: "amina.diallo@example.org", BirthDate: "1992-07-21", Status: member.StatusPending, Role: member.RoleVolunteer},
	{FirstName: "Paul", LastName: "Lefèvre", BirthDate: "1958-01-02", Status: member.StatusInactive, Role: member.RoleCoach},
	{FirstName: "Chloé", LastName: "Roux", Email: "chloe.roux@example.org", Status: member.StatusArchived, Role: member.RoleMember},
}

// demoEvents mixes heading rows with events so the not-applicable cells show up.
var demoEvents = []calendar.Event{
	{Title: "Autumn", RowType: calendar.RowTitle, Status: calendar.StatusOpen},
	{Title: "Annual general meeting", RowType: calendar.RowEvent, EventDate: "2026-11-20", Location: "Town hall", ContactEmail: "board@example.org", Status: calendar.StatusOpen, RegistrationRequired: true},
	{Title: "Club dinner", RowType: calendar.RowEvent, EventDate: "2026-12-05", Location: "Le Relais", Status: calendar.StatusDraft, RegistrationRequired: true, RequiresPayment: true, PaymentDeadline: "2026-11-28"},
	{Title: "Winter", RowType: calendar.RowTitle, Status: calendar.StatusDraft},
	{Title: "Snowshoe outing", RowType: calendar.RowEvent, EventDate: "2027-01-16", Status: calendar.StatusDraft},
}

// ExecuteSeedDemo fills empty member and event tables with demonstration rows.
// PRE: deps stores are initialised
// POST: Each table that was empty holds the demo rows; non-empty tables are untouched
func ExecuteSeedDemo(ctx context.Context, deps SeedDemoDeps) (SeedDemoResult, error) {
	var res SeedDemoResult

	n, err := deps.MemberStore.Count(ctx, memberStore.ListFilter{})
	if err != nil {
		return res, fmt.Errorf("count members: %w", err)
	}
	if n == 0 {
		for _, m := range demoMembers {
			m := m
			if err := m.Validate(); err != nil {
				return res, fmt.Errorf("demo member %s: %w", m.DisplayName(), err)
			}
			if err := deps.MemberStore.Create(ctx, &m); err != nil {
				return res, fmt.Errorf("create member: %w", err)
			}
			res.Members++
		}
	}

	events, err := deps.EventStore.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		for _, e := range demoEvents {
			e := e
			if err := e.Validate(); err != nil {
				return res, fmt.Errorf("demo event %s: %w", e.Title, err)
			}
			if err := deps.EventStore.Create(ctx, &e); err != nil {
				return res, fmt.Errorf("create event: %w", err)
			}
			res.Events++
		}
	}

	slog.Info("seed_event", "event", "demo_seeded", "members", res.Members, "events", res.Events)
	return res, nil
}

package remote

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	web "clubadmin/internal/adapters/http"
	"clubadmin/internal/adapters/storage"
	auditStore "clubadmin/internal/adapters/storage/audit"
	calendarStore "clubadmin/internal/adapters/storage/calendar"
	memberStore "clubadmin/internal/adapters/storage/member"
	"clubadmin/internal/application/tables"
	"clubadmin/internal/domain/member"
	"clubadmin/internal/inline"
)

const apiKey = "remote-test-key"

type fixture struct {
	server   *httptest.Server
	registry *tables.Registry
	members  memberStore.Store
	member   member.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitDB(db))

	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.MinCost)
	require.NoError(t, err)

	members := memberStore.NewSQLiteStore(db)
	m := member.Member{FirstName: "Amina", LastName: "Diallo", Email: "amina@example.org", Status: member.StatusPending, Role: member.RoleVolunteer}
	require.NoError(t, members.Create(context.Background(), &m))

	labels := inline.NewLabels(tables.DefaultBadges(), inline.DefaultMessages())
	registry := tables.NewRegistry(labels)
	web.RateLimitPerSecond = 1000
	srv := httptest.NewServer(web.NewMux(web.Options{
		Stores: &web.Stores{
			MemberStore: members,
			EventStore:  calendarStore.NewSQLiteStore(db),
			ChangeStore: auditStore.NewSQLiteStore(db),
		},
		Registry:     registry,
		CSRFKey:      []byte("0123456789abcdef0123456789abcdef"),
		AdminKeyHash: hash,
	}))
	t.Cleanup(srv.Close)
	return &fixture{server: srv, registry: registry, members: members, member: m}
}

func (f *fixture) client(t *testing.T, key string) *Client {
	t.Helper()
	c, err := New(f.server.URL+"/", key, f.registry, f.server.Client())
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "ftp://example.org", "http://"} {
		_, err := New(raw, apiKey, nil, nil)
		assert.Error(t, err, raw)
	}
}

func TestShow(t *testing.T) {
	f := newFixture(t)
	lines, err := f.client(t, apiKey).Show(context.Background(), tables.Members, f.member.ID)
	require.NoError(t, err)

	byField := map[string]Line{}
	for _, l := range lines {
		byField[l.Field] = l
	}
	assert.Equal(t, "Diallo", byField[member.FieldLastName].Text)
	assert.Equal(t, "—", byField[member.FieldPhone].Text)
	assert.False(t, byField[member.FieldPaymentDate].Applicable)
	assert.Equal(t, "N/A", byField[member.FieldPaymentDate].Text)

	fm, err := f.registry.Formatter(tables.Members)
	require.NoError(t, err)
	b, found := fm.Labels().Badge(member.FieldStatus, member.StatusPending)
	require.True(t, found)
	assert.Equal(t, b.Label, byField[member.FieldStatus].Text)
}

func TestShow_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client(t, "wrong").Show(ctx, tables.Members, f.member.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.client(t, apiKey).Show(ctx, tables.Members, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.client(t, apiKey).Show(ctx, "invoices", 1)
	assert.ErrorIs(t, err, tables.ErrUnknownTable)
}

func TestOpen_ChooseSaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.client(t, apiKey).Open(ctx, tables.Members, f.member.ID, member.FieldStatus)
	require.NoError(t, err)
	grid, ok := s.Grid()
	require.True(t, ok, "status opens a choice grid")
	assert.Equal(t, member.StatusPending, grid.Value())

	result := s.Controller.Choose(ctx, member.StatusActive)
	assert.Equal(t, inline.ResultSaved, result)
	msg, kind, ok := s.Message()
	require.True(t, ok)
	assert.Equal(t, inline.KindSuccess, kind)
	assert.Equal(t, "Saved", msg)

	stored, err := f.members.GetByID(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.StatusActive, stored.Status)
}

func TestOpen_CommitNormalisesAndRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client(t, apiKey)

	s, err := c.Open(ctx, tables.Members, f.member.ID, member.FieldEmail)
	require.NoError(t, err)
	_, isGrid := s.Grid()
	assert.False(t, isGrid)
	assert.Equal(t, inline.ResultSaved, s.Controller.Commit(ctx, " Amina.D@Example.ORG "))
	assert.Equal(t, "amina.d@example.org", s.Controller.Cell().Value, "cell settles to the echoed value")

	s, err = c.Open(ctx, tables.Members, f.member.ID, member.FieldEmail)
	require.NoError(t, err)
	assert.Equal(t, inline.ResultFailed, s.Controller.Commit(ctx, "not-an-email"))
	msg, kind, ok := s.Message()
	require.True(t, ok)
	assert.Equal(t, inline.KindError, kind)
	assert.Contains(t, msg, "email")
	assert.Equal(t, "amina.d@example.org", s.Controller.Cell().Value, "rejected value is reverted")

	_, err = c.Open(ctx, tables.Members, f.member.ID, member.FieldPaymentDate)
	assert.ErrorIs(t, err, inline.ErrNotEditable)

	_, err = c.Open(ctx, tables.Members, f.member.ID, "shoe_size")
	assert.ErrorIs(t, err, inline.ErrUnknownField)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client(t, apiKey)

	changes, err := c.History(ctx, tables.Members, f.member.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, changes)

	s, err := c.Open(ctx, tables.Members, f.member.ID, member.FieldRole)
	require.NoError(t, err)
	require.Equal(t, inline.ResultSaved, s.Controller.Choose(ctx, member.RoleCoach))

	changes, err = c.History(ctx, tables.Members, f.member.ID, 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, member.FieldRole, changes[0].Field)
	assert.Equal(t, member.RoleVolunteer, changes[0].Previous)
	assert.Equal(t, member.RoleCoach, changes[0].Value)

	_, err = c.History(ctx, "invoices", 1, 0)
	assert.ErrorIs(t, err, tables.ErrUnknownTable)

	_, err = f.client(t, "wrong").History(ctx, tables.Members, f.member.ID, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

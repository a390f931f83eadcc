package inline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	ctrl      *Controller
	transport *scriptedTransport
	timers    *fakeTimers
	feedback  *Channel
	format    *Formatter
}

func newHarness(t *testing.T, field, value string, row Row) *harness {
	t.Helper()
	h := &harness{
		transport: &scriptedTransport{},
		timers:    &fakeTimers{},
		format:    testFormatter(),
	}
	h.feedback = NewChannel(PlacementSibling, h.timers.AfterFunc)
	coord := NewCoordinator("members", h.transport, StaticToken("tok"), "")
	cell := NewCell(h.format, 42, mustField(t, h.format, field), withValue(row, field, value))
	ctrl, err := NewController(cell, Deps{Formatter: h.format, Saver: coord, Feedback: h.feedback})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func mustField(t *testing.T, f *Formatter, name string) FieldDefinition {
	t.Helper()
	def, err := f.Catalogue().Lookup(name)
	require.NoError(t, err)
	return def
}

func withValue(row Row, field, value string) Row {
	out := row.Clone()
	out[field] = value
	return out
}

var statusID = CellID{EntityID: 42, Field: "status"}

func TestController_OpenCapturesSnapshotAndUnbindsClick(t *testing.T) {
	h := newHarness(t, "status", "active", nil)
	before := h.ctrl.Cell()

	ed, ok := h.ctrl.Click()
	require.True(t, ok)
	grid, isGrid := ed.(*ChoiceGrid)
	require.True(t, isGrid)
	assert.Equal(t, "active", grid.Value())
	assert.Equal(t, StateEditing, h.ctrl.State())
	assert.False(t, h.ctrl.ClickBound())

	_, reopened := h.ctrl.Click()
	assert.False(t, reopened, "click inside the editor must not reopen it")

	assert.True(t, h.ctrl.Cancel())
	after := h.ctrl.Cell()
	assert.Equal(t, before.Display, after.Display)
	assert.Equal(t, before.Value, after.Value)
	assert.True(t, h.ctrl.ClickBound())
	assert.Equal(t, 0, h.transport.calls())
}

func TestController_NoopCommitIssuesNoRequest(t *testing.T) {
	for _, field := range []string{"status", "name", "email", "birth_date"} {
		t.Run(field, func(t *testing.T) {
			h := newHarness(t, field, "value-"+field, nil)
			original := h.ctrl.Cell()

			_, err := h.ctrl.Open()
			require.NoError(t, err)
			res := h.ctrl.Commit(context.Background(), original.Value)

			assert.Equal(t, ResultNoop, res)
			assert.Equal(t, 0, h.transport.calls())
			assert.Equal(t, StateIdle, h.ctrl.State())
			assert.Equal(t, original.Display, h.ctrl.Cell().Display)
		})
	}
}

// Scenario A
func TestController_SuccessUsesServerValueAndAutoClears(t *testing.T) {
	h := newHarness(t, "status", "active", nil)
	h.transport.env = Succeed("inactive")

	_, err := h.ctrl.Open()
	require.NoError(t, err)
	res := h.ctrl.Key(context.Background(), KeyRight)
	assert.Equal(t, ResultNone, res)
	res = h.ctrl.Key(context.Background(), KeyEnter)
	require.Equal(t, ResultSaved, res)

	cell := h.ctrl.Cell()
	assert.Equal(t, "inactive", cell.Value)
	assert.Equal(t, h.format.Format("status", "inactive"), cell.Display)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.True(t, h.ctrl.ClickBound())

	n, ok := h.feedback.Notice(statusID)
	require.True(t, ok)
	assert.Equal(t, KindSuccess, n.Kind)
	assert.Equal(t, "Saved", n.Message)
	assert.Equal(t, []time.Duration{3 * time.Second}, h.timers.durations())

	h.timers.fire()
	_, ok = h.feedback.Notice(statusID)
	assert.False(t, ok, "success feedback clears after the delay")

	require.Len(t, h.transport.requests, 1)
	req := h.transport.requests[0]
	assert.Equal(t, statusID, req.Cell)
	assert.Equal(t, "inactive", req.Value)
	assert.Equal(t, "tok", req.Token)
	assert.NotEmpty(t, req.RequestID)
}

func TestController_NormalisedEchoWins(t *testing.T) {
	h := newHarness(t, "email", "old@example.org", nil)
	h.transport.env = Succeed("new@example.org")

	_, err := h.ctrl.Open()
	require.NoError(t, err)
	require.NoError(t, h.ctrl.Input("  NEW@Example.org "))
	res := h.ctrl.Key(context.Background(), KeyEnter)

	require.Equal(t, ResultSaved, res)
	assert.Equal(t, "new@example.org", h.ctrl.Cell().Value)
	assert.Equal(t, h.format.Format("email", "new@example.org"), h.ctrl.Cell().Display)
	assert.NotEqual(t, h.format.Format("email", "  NEW@Example.org "), h.ctrl.Cell().Display)
}

func TestController_SuccessWithoutEchoKeepsSentValue(t *testing.T) {
	h := newHarness(t, "name", "Ana", nil)
	h.transport.env = Envelope{Success: true}

	_, err := h.ctrl.Open()
	require.NoError(t, err)
	res := h.ctrl.Commit(context.Background(), "Ana Lima")

	require.Equal(t, ResultSaved, res)
	assert.Equal(t, "Ana Lima", h.ctrl.Cell().Value)
}

// Scenario B
func TestController_ApplicationRejectionRollsBack(t *testing.T) {
	h := newHarness(t, "status", "active", nil)
	h.transport.env = Fail("Erreur serveur")
	before := h.ctrl.Cell()

	_, err := h.ctrl.Open()
	require.NoError(t, err)
	res := h.ctrl.Choose(context.Background(), "inactive")

	require.Equal(t, ResultFailed, res)
	after := h.ctrl.Cell()
	assert.Equal(t, before.Value, after.Value)
	assert.Equal(t, before.Display, after.Display)
	assert.Equal(t, before.Row, after.Row)

	n, ok := h.feedback.Notice(statusID)
	require.True(t, ok)
	assert.Equal(t, KindError, n.Kind)
	assert.Equal(t, "Erreur serveur", n.Message)
	assert.Empty(t, h.timers.durations(), "error feedback is not auto-cleared")

	_, err = h.ctrl.Open()
	require.NoError(t, err)
	_, ok = h.feedback.Notice(statusID)
	assert.False(t, ok, "next interaction clears the error")
}

func TestController_FailureFallbacks(t *testing.T) {
	t.Run("rejection without message", func(t *testing.T) {
		h := newHarness(t, "name", "Ana", nil)
		h.transport.env = Envelope{Success: false}
		_, err := h.ctrl.Open()
		require.NoError(t, err)
		require.Equal(t, ResultFailed, h.ctrl.Commit(context.Background(), "Bea"))
		n, _ := h.feedback.Notice(CellID{EntityID: 42, Field: "name"})
		assert.Equal(t, DefaultMessages().SaveFailed, n.Message)
		assert.Equal(t, "Ana", h.ctrl.Cell().Value)
	})

	t.Run("transport failure", func(t *testing.T) {
		h := newHarness(t, "name", "Ana", nil)
		h.transport.err = errors.New("connection reset")
		before := h.ctrl.Cell()
		_, err := h.ctrl.Open()
		require.NoError(t, err)
		require.Equal(t, ResultFailed, h.ctrl.Commit(context.Background(), "Bea"))
		n, _ := h.feedback.Notice(CellID{EntityID: 42, Field: "name"})
		assert.Equal(t, DefaultMessages().SaveFailed, n.Message)
		assert.Equal(t, before, h.ctrl.Cell())
	})
}

// Scenario D
func TestController_DoubleSubmitSendsOneRequest(t *testing.T) {
	h := newHarness(t, "status", "active", nil)
	h.transport.env = Succeed("inactive")
	h.transport.gate = make(chan struct{})
	h.transport.entered = make(chan struct{}, 1)

	_, err := h.ctrl.Open()
	require.NoError(t, err)

	done := make(chan Result, 1)
	go func() { done <- h.ctrl.Choose(context.Background(), "inactive") }()
	<-h.transport.entered

	assert.Equal(t, StateSaving, h.ctrl.State())
	assert.Equal(t, ResultDropped, h.ctrl.Choose(context.Background(), "inactive"))
	assert.Equal(t, ResultDropped, h.ctrl.Commit(context.Background(), "inactive"))
	assert.Equal(t, ResultDropped, h.ctrl.Key(context.Background(), KeyEnter))
	assert.False(t, h.ctrl.Cancel(), "a save in flight cannot be cancelled")

	close(h.transport.gate)
	assert.Equal(t, ResultSaved, <-done)
	assert.Equal(t, 1, h.transport.calls())
}

func TestController_BlurAndEnterRace(t *testing.T) {
	h := newHarness(t, "name", "Ana", nil)
	h.transport.env = Succeed("Bea")
	h.transport.gate = make(chan struct{})
	h.transport.entered = make(chan struct{}, 1)

	_, err := h.ctrl.Open()
	require.NoError(t, err)
	require.NoError(t, h.ctrl.Input("Bea"))

	done := make(chan Result, 1)
	go func() { done <- h.ctrl.Key(context.Background(), KeyEnter) }()
	<-h.transport.entered
	assert.Equal(t, ResultDropped, h.ctrl.Blur(context.Background()))
	close(h.transport.gate)

	assert.Equal(t, ResultSaved, <-done)
	assert.Equal(t, 1, h.transport.calls())
}

func TestController_OptimisticDisplayWhileSaving(t *testing.T) {
	h := newHarness(t, "status", "active", nil)
	h.transport.env = Fail("nope")
	h.transport.gate = make(chan struct{})
	h.transport.entered = make(chan struct{}, 1)
	original := h.ctrl.Cell().Display

	_, err := h.ctrl.Open()
	require.NoError(t, err)
	done := make(chan Result, 1)
	go func() { done <- h.ctrl.Choose(context.Background(), "inactive") }()
	<-h.transport.entered

	assert.Contains(t, string(h.ctrl.Render()), string(h.format.Format("status", "inactive")))
	assert.Contains(t, string(h.ctrl.Render()), `aria-busy="true"`)
	close(h.transport.gate)
	<-done
	assert.Equal(t, original, h.ctrl.Render())
}

func TestController_EscapeCancelsWithoutRequest(t *testing.T) {
	h := newHarness(t, "status", "active", nil)
	original := h.ctrl.Render()

	_, err := h.ctrl.Open()
	require.NoError(t, err)
	h.ctrl.Key(context.Background(), KeyRight)
	assert.Equal(t, ResultCancelled, h.ctrl.Key(context.Background(), KeyEsc))
	assert.Equal(t, original, h.ctrl.Render())
	assert.Equal(t, 0, h.transport.calls())
}

func TestController_GateRecheckedOnSuccess(t *testing.T) {
	h := newHarness(t, "payment_date", "2026-01-10", Row{"payment_required": "1"})
	h.transport.env = Succeed("2026-02-01")

	_, err := h.ctrl.Open()
	require.NoError(t, err)
	require.Equal(t, ResultSaved, h.ctrl.Commit(context.Background(), "2026-02-01"))
	assert.Equal(t, "01/02/2026", string(h.ctrl.Cell().Display))
}

func TestController_NotApplicableCannotOpen(t *testing.T) {
	h := newHarness(t, "payment_date", "2026-01-10", Row{"payment_required": "0"})
	assert.Contains(t, string(h.ctrl.Render()), "N/A")

	_, err := h.ctrl.Open()
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.Equal(t, StateIdle, h.ctrl.State())

	h2 := newHarness(t, "required", "1", Row{"row_type": "title"})
	_, err = h2.ctrl.Open()
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestController_Teardown(t *testing.T) {
	h := newHarness(t, "status", "active", nil)
	original := h.ctrl.Render()
	_, err := h.ctrl.Open()
	require.NoError(t, err)

	h.ctrl.Teardown()
	assert.Equal(t, original, h.ctrl.Render())
	assert.False(t, h.ctrl.ClickBound())
	_, err = h.ctrl.Open()
	assert.ErrorIs(t, err, ErrTornDown)
}

func TestController_IndependentCellsSaveConcurrently(t *testing.T) {
	format := testFormatter()
	transport := &scriptedTransport{env: Succeed("x"), gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	coord := NewCoordinator("members", transport, nil, "")
	feedback := NewChannel(PlacementRow, (&fakeTimers{}).AfterFunc)

	a, err := NewController(Cell{ID: CellID{EntityID: 1, Field: "name"}, Value: "a"}, Deps{Formatter: format, Saver: coord, Feedback: feedback})
	require.NoError(t, err)
	b, err := NewController(Cell{ID: CellID{EntityID: 2, Field: "name"}, Value: "b"}, Deps{Formatter: format, Saver: coord, Feedback: feedback})
	require.NoError(t, err)

	_, err = a.Open()
	require.NoError(t, err)
	_, err = b.Open()
	require.NoError(t, err)

	results := make(chan Result, 2)
	go func() { results <- a.Commit(context.Background(), "x") }()
	go func() { results <- b.Commit(context.Background(), "x") }()
	<-transport.entered
	<-transport.entered
	assert.Equal(t, StateSaving, a.State())
	assert.Equal(t, StateSaving, b.State())

	close(transport.gate)
	assert.Equal(t, ResultSaved, <-results)
	assert.Equal(t, ResultSaved, <-results)
	assert.Equal(t, 2, transport.calls())
}

func TestNewController_UnknownField(t *testing.T) {
	_, err := NewController(Cell{ID: CellID{EntityID: 1, Field: "nope"}}, Deps{Formatter: testFormatter()})
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = NewController(Cell{ID: CellID{EntityID: 0, Field: "name"}}, Deps{Formatter: testFormatter()})
	assert.ErrorIs(t, err, ErrInvalidCell)
}

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"clubadmin/internal/application/orchestrators"
	"clubadmin/internal/application/projections"
	"clubadmin/internal/application/tables"
	"clubadmin/internal/inline"
)

// errNoOpenCell is returned for an action on a cell that has no controller.
var errNoOpenCell = errors.New("cell is not open for editing")

// workbench holds the live cell controllers of one browser session. Each
// table gets its own save coordinator and feedback channel; the banner is
// shared by the whole page.
type workbench struct {
	sessionID string
	actor     string
	banner    inline.Banner

	mu     sync.Mutex
	tables map[string]*tableBench
}

// notices on the events table go to the row, so heading rows that span the
// grid still show them in one place.
var tablePlacements = map[string]inline.Placement{
	tables.Events: inline.PlacementRow,
}

func placementFor(table string) inline.Placement {
	if p, ok := tablePlacements[table]; ok {
		return p
	}
	return inline.PlacementSibling
}

type tableBench struct {
	formatter   *inline.Formatter
	coordinator *inline.Coordinator
	feedback    *inline.Channel
	cells       map[inline.CellID]*inline.Controller
}

// workbenchStore maps session IDs to workbenches.
type workbenchStore struct {
	mu      sync.Mutex
	benches map[string]*workbench
}

func newWorkbenchStore() *workbenchStore {
	return &workbenchStore{benches: make(map[string]*workbench)}
}

// get returns the workbench of sessionID, creating it on first use.
func (s *workbenchStore) get(sessionID, actor string) *workbench {
	s.mu.Lock()
	defer s.mu.Unlock()
	wb, ok := s.benches[sessionID]
	if !ok {
		wb = &workbench{sessionID: sessionID, actor: actor, tables: make(map[string]*tableBench)}
		s.benches[sessionID] = wb
	}
	return wb
}

// drop tears down every controller of sessionID and forgets the workbench.
func (s *workbenchStore) drop(sessionID string) {
	s.mu.Lock()
	wb, ok := s.benches[sessionID]
	delete(s.benches, sessionID)
	s.mu.Unlock()
	if ok {
		wb.teardown()
	}
}

// len returns the number of live workbenches.
func (s *workbenchStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.benches)
}

// bench returns the per-table state, building it on first use.
// PRE: wb.mu is held
func (wb *workbench) bench(table string) (*tableBench, error) {
	if tb, ok := wb.tables[table]; ok {
		return tb, nil
	}
	f, err := registry.Formatter(table)
	if err != nil {
		return nil, err
	}
	actor := wb.actor
	transport := inline.TransportFunc(func(ctx context.Context, req inline.SaveRequest) (inline.Envelope, error) {
		env, _ := applySave(ctx, req.Table, orchestrators.UpdateFieldInput{
			EntityID:  req.Cell.EntityID,
			Field:     req.Cell.Field,
			Value:     req.Value,
			Actor:     actor,
			RequestID: req.RequestID,
		})
		return env, nil
	})
	msgs := f.Labels().Messages()
	tb := &tableBench{
		formatter:   f,
		coordinator: inline.NewCoordinator(table, transport, nil, msgs.SaveFailed),
		feedback:    inline.NewChannel(placementFor(table), nil),
		cells:       make(map[inline.CellID]*inline.Controller),
	}
	wb.tables[table] = tb
	return tb, nil
}

// open seeds a controller for id from the stored row and swaps it into an
// editor. A previous idle controller for the same cell is torn down first;
// a cell already editing or saving is returned as is, including one opened
// by a concurrent request.
// PRE: table is registered
// POST: On success the returned controller is Editing or Saving
func (wb *workbench) open(ctx context.Context, table string, id inline.CellID) (*inline.Controller, error) {
	wb.mu.Lock()
	tb, err := wb.bench(table)
	if err != nil {
		wb.mu.Unlock()
		return nil, err
	}
	if prev, ok := tb.cells[id]; ok {
		if prev.State() != inline.StateIdle {
			wb.mu.Unlock()
			return prev, nil
		}
		prev.Teardown()
		delete(tb.cells, id)
	}
	wb.mu.Unlock()

	row, err := projections.QueryGetTableRow(ctx, projections.GetTableRowQuery{Table: table, EntityID: id.EntityID}, projections.GetTableRowDeps{
		Registry:    registry,
		MemberStore: stores.MemberStore,
		EventStore:  stores.EventStore,
	})
	if err != nil {
		return nil, err
	}
	def, err := tb.formatter.Catalogue().Lookup(id.Field)
	if err != nil {
		return nil, err
	}

	ctrl, err := inline.NewController(inline.NewCell(tb.formatter, id.EntityID, def, row.Row), inline.Deps{
		Formatter: tb.formatter,
		Saver:     tb.coordinator,
		Feedback:  tb.feedback,
	})
	if err != nil {
		return nil, err
	}

	// Another open of the same cell may have finished while the row loaded.
	wb.mu.Lock()
	if prev, ok := tb.cells[id]; ok {
		if prev.State() != inline.StateIdle {
			wb.mu.Unlock()
			ctrl.Teardown()
			return prev, nil
		}
		prev.Teardown()
	}
	tb.cells[id] = ctrl
	_, err = ctrl.Open()
	wb.mu.Unlock()

	if err != nil {
		if errors.Is(err, inline.ErrNotEditable) {
			tb.feedback.Show(id, tb.formatter.Labels().Messages().NotApplicable, inline.KindError)
		}
		return ctrl, err
	}
	slog.Debug("workbench_event", "event", "cell_opened", "session_id", wb.sessionID, "table", table, "cell", id.String())
	return ctrl, nil
}

// controller returns the controller of an open cell.
func (wb *workbench) controller(table string, id inline.CellID) (*inline.Controller, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	tb, ok := wb.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoOpenCell, id)
	}
	ctrl, ok := tb.cells[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoOpenCell, id)
	}
	return ctrl, nil
}

// dependents returns the fields of table whose rendering depends on field.
func (wb *workbench) dependents(table, field string) []string {
	f, err := registry.Formatter(table)
	if err != nil {
		return nil
	}
	return f.Catalogue().Dependents(field)
}

// teardown releases every controller of the workbench.
func (wb *workbench) teardown() {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	for _, tb := range wb.tables {
		for id, ctrl := range tb.cells {
			ctrl.Teardown()
			delete(tb.cells, id)
		}
	}
}

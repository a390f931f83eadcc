package inline

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
)

// ErrTornDown is returned by a controller whose listeners were released.
var ErrTornDown = errors.New("cell controller was torn down")

// State is the life-cycle position of a cell.
type State int

const (
	StateIdle State = iota
	StateEditing
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	}
	return "idle"
}

// Result is how a commit attempt settled.
type Result int

const (
	ResultNone Result = iota
	ResultNoop
	ResultSaved
	ResultFailed
	ResultDropped
	ResultCancelled
)

func (r Result) String() string {
	switch r {
	case ResultNoop:
		return "noop"
	case ResultSaved:
		return "saved"
	case ResultFailed:
		return "failed"
	case ResultDropped:
		return "dropped"
	case ResultCancelled:
		return "cancelled"
	}
	return "none"
}

// EditSession exists between opening a cell and the end of the edit.
type EditSession struct {
	editor          Editor
	originalValue   string
	originalDisplay template.HTML
	originalRow     Row
	saving          bool
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Formatter *Formatter
	Saver     Saver
	Feedback  *Channel
}

// Controller owns the life cycle of one cell:
// Idle → Editing → Saving → Idle, or Editing → Idle on cancel and no-op commits.
type Controller struct {
	def      FieldDefinition
	format   *Formatter
	saver    Saver
	feedback *Channel

	mu         sync.Mutex
	cell       Cell
	state      State
	session    *EditSession
	clickBound bool
	tornDown   bool
}

// NewController binds a controller to cell.
// PRE: cell.ID.Field is declared in deps.Formatter's catalogue
// POST: Controller is Idle with its click listener bound
func NewController(cell Cell, deps Deps) (*Controller, error) {
	if err := cell.ID.Validate(); err != nil {
		return nil, err
	}
	def, err := deps.Formatter.Catalogue().Lookup(cell.ID.Field)
	if err != nil {
		return nil, err
	}
	if cell.Row == nil {
		cell.Row = Row{}
	}
	cell.Row = cell.Row.Clone()
	cell.Row[def.Name] = cell.Value
	if cell.Display == "" {
		cell.Display = deps.Formatter.FormatRow(def.Name, cell.Row)
	}
	if deps.Feedback == nil {
		deps.Feedback = NewChannel(PlacementSibling, nil)
	}
	return &Controller{
		def:        def,
		format:     deps.Formatter,
		saver:      deps.Saver,
		feedback:   deps.Feedback,
		cell:       cell,
		state:      StateIdle,
		clickBound: true,
	}, nil
}

// Cell returns a snapshot of the cell.
func (c *Controller) Cell() Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.cell
	out.Row = c.cell.Row.Clone()
	return out
}

// State returns the current life-cycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClickBound reports whether a click on the cell opens an editor.
func (c *Controller) ClickBound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clickBound
}

// Editor returns the live editor, if the cell is being edited.
func (c *Controller) Editor() (Editor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, false
	}
	return c.session.editor, true
}

// Click is the cell's click listener. It is a no-op while no listener is bound.
func (c *Controller) Click() (Editor, bool) {
	c.mu.Lock()
	bound := c.clickBound
	c.mu.Unlock()
	if !bound {
		return nil, false
	}
	ed, err := c.Open()
	return ed, err == nil
}

// Open swaps the cell into an editor.
// PRE: Controller is Idle and the field applies to the row
// POST: The original value and display are captured before any mutation,
// the click listener is unbound and the cell's feedback is cleared
func (c *Controller) Open() (Editor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tornDown {
		return nil, ErrTornDown
	}
	if c.state != StateIdle {
		return nil, fmt.Errorf("open %s: cell is %s", c.cell.ID, c.state)
	}
	if !c.def.Applicable(c.cell.Row) {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, c.cell.ID)
	}

	c.session = &EditSession{
		originalValue:   c.cell.Value,
		originalDisplay: c.cell.Display,
		originalRow:     c.cell.Row.Clone(),
	}
	c.session.editor = BuildEditor(c.def, c.cell.ID, c.cell.Value, c.format.Labels().Messages())
	c.state = StateEditing
	c.clickBound = false
	c.feedback.Clear(c.cell.ID)
	return c.session.editor, nil
}

// Input replaces the content of a text, date or email editor.
func (c *Controller) Input(value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateEditing {
		return ErrNotEditing
	}
	in, ok := c.session.editor.(*InputEditor)
	if !ok {
		return fmt.Errorf("input on %s: editor is not an input", c.cell.ID)
	}
	in.SetValue(value)
	return nil
}

// Key delivers a key press to the editor and performs the resulting action.
func (c *Controller) Key(ctx context.Context, k Key) Result {
	c.mu.Lock()
	if c.state != StateEditing {
		r := c.idleResultLocked()
		c.mu.Unlock()
		return r
	}
	var action Action
	switch ed := c.session.editor.(type) {
	case *ChoiceGrid:
		action = ed.HandleKey(k)
	case *InputEditor:
		action = ed.HandleKey(k)
	}
	value := c.session.editor.Value()
	c.mu.Unlock()

	return c.dispatch(ctx, action, value)
}

// Choose is a click on a choice grid button.
func (c *Controller) Choose(ctx context.Context, value string) Result {
	c.mu.Lock()
	if c.state != StateEditing {
		r := c.idleResultLocked()
		c.mu.Unlock()
		return r
	}
	grid, ok := c.session.editor.(*ChoiceGrid)
	if !ok {
		c.mu.Unlock()
		return ResultNone
	}
	action := grid.Click(value)
	c.mu.Unlock()

	return c.dispatch(ctx, action, value)
}

// Blur commits the content of an input editor when it loses focus.
// Choice grids commit only through their buttons.
func (c *Controller) Blur(ctx context.Context) Result {
	c.mu.Lock()
	if c.state != StateEditing {
		r := c.idleResultLocked()
		c.mu.Unlock()
		return r
	}
	in, ok := c.session.editor.(*InputEditor)
	if !ok {
		c.mu.Unlock()
		return ResultNone
	}
	value := in.Value()
	c.mu.Unlock()

	return c.Commit(ctx, value)
}

// idleResultLocked reports input arriving while no editor is live; during a
// save it is a dropped duplicate submission.
func (c *Controller) idleResultLocked() Result {
	if c.state == StateSaving {
		return ResultDropped
	}
	return ResultNone
}

func (c *Controller) dispatch(ctx context.Context, action Action, value string) Result {
	switch action {
	case ActionCommit:
		return c.Commit(ctx, value)
	case ActionCancel:
		if c.Cancel() {
			return ResultCancelled
		}
	}
	return ResultNone
}

// Cancel ends the edit and restores the original display verbatim.
// It has no effect once a save is in flight.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateEditing {
		return false
	}
	c.restoreLocked()
	c.endLocked()
	return true
}

// Commit submits value.
// PRE: Controller is Editing
// POST: Equal values end the edit without a request (ResultNoop). A commit
// while a save is running is dropped (ResultDropped). Otherwise exactly one
// save is issued and the cell settles to the confirmed value (ResultSaved)
// or to its pre-edit snapshot (ResultFailed).
func (c *Controller) Commit(ctx context.Context, value string) Result {
	c.mu.Lock()
	if c.state != StateEditing || c.session == nil || c.session.saving {
		c.mu.Unlock()
		return ResultDropped
	}
	id := c.cell.ID
	if value == c.session.originalValue {
		c.restoreLocked()
		c.endLocked()
		c.mu.Unlock()
		return ResultNoop
	}

	c.session.saving = true
	c.state = StateSaving
	optimistic := c.cell.Row.Clone()
	optimistic[id.Field] = value
	c.cell.Display = c.format.FormatRow(id.Field, optimistic)
	c.mu.Unlock()

	out := c.saver.Save(ctx, id, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	if out.OK {
		c.cell.Value = out.Value
		c.cell.Row[id.Field] = out.Value
		c.cell.Display = c.format.FormatRow(id.Field, c.cell.Row)
		c.endLocked()
		c.feedback.Show(id, c.format.Labels().Messages().Saved, KindSuccess)
		slog.Info("inline_event", "event", "cell_saved", "cell", id.String(), "value", out.Value)
		return ResultSaved
	}

	c.restoreLocked()
	c.endLocked()
	c.feedback.Show(id, out.Message, KindError)
	slog.Info("inline_event", "event", "cell_reverted", "cell", id.String(), "reason", out.Message)
	return ResultFailed
}

// Render returns the current inner markup of the cell.
func (c *Controller) Render() template.HTML {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateEditing:
		return c.session.editor.Render()
	case StateSaving:
		return template.HTML(fmt.Sprintf(`<span class="inline-saving" aria-busy="true">%s</span>`, c.cell.Display))
	}
	return c.cell.Display
}

// Feedback returns the markup of the cell's live notice.
func (c *Controller) Feedback() template.HTML {
	return c.feedback.Render(c.cell.ID)
}

// Teardown releases the cell's listeners before the host re-renders it.
// An open edit is cancelled; a running save settles but binds nothing.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateEditing {
		c.restoreLocked()
		c.session = nil
		c.state = StateIdle
	}
	c.clickBound = false
	c.tornDown = true
}

func (c *Controller) restoreLocked() {
	c.cell.Value = c.session.originalValue
	c.cell.Display = c.session.originalDisplay
	c.cell.Row = c.session.originalRow.Clone()
}

func (c *Controller) endLocked() {
	c.session = nil
	c.state = StateIdle
	c.clickBound = !c.tornDown
}

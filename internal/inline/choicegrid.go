package inline

import (
	"fmt"
	"html/template"
	"strings"
)

// Key is a normalised key name delivered to an editor.
type Key string

const (
	KeyUp    Key = "up"
	KeyDown  Key = "down"
	KeyLeft  Key = "left"
	KeyRight Key = "right"
	KeyEnter Key = "enter"
	KeySpace Key = "space"
	KeyEsc   Key = "esc"
	KeyTab   Key = "tab"
)

// ParseKey normalises DOM KeyboardEvent.key names and terminal key names.
// Unrecognised keys are returned lower-cased and are ignored by editors.
func ParseKey(s string) Key {
	switch s {
	case "ArrowUp", "up":
		return KeyUp
	case "ArrowDown", "down":
		return KeyDown
	case "ArrowLeft", "left":
		return KeyLeft
	case "ArrowRight", "right":
		return KeyRight
	case "Enter", "enter":
		return KeyEnter
	case " ", "Spacebar", "space":
		return KeySpace
	case "Escape", "Esc", "esc":
		return KeyEsc
	case "Tab", "tab":
		return KeyTab
	}
	return Key(strings.ToLower(s))
}

// Action is what an editor asks its controller to do after an input.
type Action int

const (
	ActionNone Action = iota
	ActionCommit
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionCommit:
		return "commit"
	case ActionCancel:
		return "cancel"
	}
	return "none"
}

// ChoiceGrid replaces a dropdown with one button per allowed value.
// Focus moves with the arrow keys; only a commit changes the hidden value.
type ChoiceGrid struct {
	id          CellID
	options     []Option
	hidden      string
	focus       int
	cancelLabel string
}

// NewChoiceGrid builds a grid for id positioned on current.
// An empty option set degrades to a single option holding current.
// POST: Focus is on the button matching current, else the first button
func NewChoiceGrid(id CellID, options []Option, current, cancelLabel string) *ChoiceGrid {
	if len(options) == 0 {
		label := current
		if label == "" {
			label = "—"
		}
		options = []Option{{Value: current, Label: label}}
	}
	opts := make([]Option, len(options))
	copy(opts, options)
	g := &ChoiceGrid{
		id:          id,
		options:     opts,
		hidden:      current,
		cancelLabel: cancelLabel,
	}
	for i, o := range opts {
		if o.Value == current {
			g.focus = i
			break
		}
	}
	return g
}

// CellID returns the cell the grid edits.
func (g *ChoiceGrid) CellID() CellID { return g.id }

// Value returns the hidden value that will be submitted.
func (g *ChoiceGrid) Value() string { return g.hidden }

// Options returns a copy of the buttons' options.
func (g *ChoiceGrid) Options() []Option {
	out := make([]Option, len(g.options))
	copy(out, g.options)
	return out
}

// Focus returns the index of the focused button.
func (g *ChoiceGrid) Focus() int { return g.focus }

// FocusedValue returns the value of the focused button.
func (g *ChoiceGrid) FocusedValue() string { return g.options[g.focus].Value }

// Active reports whether option i carries the active flag.
func (g *ChoiceGrid) Active(i int) bool {
	return i >= 0 && i < len(g.options) && g.options[i].Value == g.hidden
}

// HandleKey applies one key press.
// Arrow keys move focus with wrap-around; Enter and Space commit the focused
// value; Escape cancels. No other key changes the hidden value.
func (g *ChoiceGrid) HandleKey(k Key) Action {
	n := len(g.options)
	switch k {
	case KeyRight, KeyDown:
		g.focus = (g.focus + 1) % n
	case KeyLeft, KeyUp:
		g.focus = (g.focus - 1 + n) % n
	case KeyEnter, KeySpace:
		g.hidden = g.options[g.focus].Value
		return ActionCommit
	case KeyEsc:
		return ActionCancel
	}
	return ActionNone
}

// Click commits the button holding value. Values not on the grid are ignored.
func (g *ChoiceGrid) Click(value string) Action {
	for i, o := range g.options {
		if o.Value == value {
			g.focus = i
			g.hidden = value
			return ActionCommit
		}
	}
	return ActionNone
}

// CancelControl is the explicit cancel button.
func (g *ChoiceGrid) CancelControl() Action { return ActionCancel }

// Render returns the grid markup with a roving tabindex on the focused button.
func (g *ChoiceGrid) Render() template.HTML {
	var b strings.Builder
	cell := template.HTMLEscapeString(g.id.String())
	fmt.Fprintf(&b, `<div class="choice-grid" role="group" data-cell="%s">`, cell)
	fmt.Fprintf(&b, `<input type="hidden" name="value" value="%s">`, template.HTMLEscapeString(g.hidden))
	for i, o := range g.options {
		class := "choice"
		pressed := "false"
		if g.Active(i) {
			class += " active"
			pressed = "true"
		}
		tabindex := "-1"
		if i == g.focus {
			tabindex = "0"
		}
		fmt.Fprintf(&b, `<button type="button" class="%s" data-value="%s" aria-pressed="%s" tabindex="%s">%s</button>`,
			class, template.HTMLEscapeString(o.Value), pressed, tabindex, template.HTMLEscapeString(o.Label))
	}
	fmt.Fprintf(&b, `<button type="button" class="choice-cancel" data-action="cancel">%s</button>`,
		template.HTMLEscapeString(g.cancelLabel))
	b.WriteString(`</div>`)
	return template.HTML(b.String())
}

package inline

import (
	"fmt"
	"html/template"
)

// Editor is the widget shown inside a cell while it is being edited.
type Editor interface {
	CellID() CellID
	Value() string
	Render() template.HTML
}

// InputEditor is a single native input for text, date and email fields.
type InputEditor struct {
	id    CellID
	typ   FieldType
	value string
}

// CellID returns the cell the input edits.
func (e *InputEditor) CellID() CellID { return e.id }

// Value returns the current content of the input.
func (e *InputEditor) Value() string { return e.value }

// SetValue replaces the content of the input, as typing does.
func (e *InputEditor) SetValue(v string) { e.value = v }

// Type returns the field type the input was built for.
func (e *InputEditor) Type() FieldType { return e.typ }

// HandleKey maps submit and abort keys; other keys belong to the input itself.
func (e *InputEditor) HandleKey(k Key) Action {
	switch k {
	case KeyEnter:
		return ActionCommit
	case KeyEsc:
		return ActionCancel
	}
	return ActionNone
}

// Render returns the input markup, pre-filled and autofocused.
func (e *InputEditor) Render() template.HTML {
	return template.HTML(fmt.Sprintf(
		`<input class="inline-input" type="%s" name="value" value="%s" data-cell="%s" autofocus>`,
		e.typ, template.HTMLEscapeString(e.value), template.HTMLEscapeString(e.id.String()),
	))
}

// BuildEditor constructs the editor for def positioned on current.
// Enumerated fields always get a ChoiceGrid; a choice field without
// registered options gets a grid holding only current.
// PRE: def.Type is valid
// POST: Never returns nil
func BuildEditor(def FieldDefinition, id CellID, current string, msgs Messages) Editor {
	if def.IsChoice() {
		return NewChoiceGrid(id, def.Options, current, msgs.Cancel)
	}
	typ := def.Type
	if typ != FieldDate && typ != FieldEmail {
		typ = FieldText
	}
	return &InputEditor{id: id, typ: typ, value: current}
}

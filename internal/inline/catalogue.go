package inline

import (
	"fmt"
	"slices"
)

// FieldType is the closed set of editable field shapes.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldDate   FieldType = "date"
	FieldEmail  FieldType = "email"
	FieldChoice FieldType = "choice"
)

// Valid reports whether t is one of the supported shapes.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldDate, FieldEmail, FieldChoice:
		return true
	}
	return false
}

// Display selects how the Formatter renders a raw value.
type Display string

const (
	DisplayText  Display = "text"
	DisplayBadge Display = "badge"
	DisplayEmail Display = "email"
	DisplayDate  Display = "date"
	DisplayAge   Display = "age"
)

// Option is one allowed value of an enumerated field.
type Option struct {
	Value string
	Label string
}

// Condition matches rows whose Field holds one of Values.
type Condition struct {
	Field  string
	Values []string
}

// Matches reports whether row satisfies the condition.
func (c Condition) Matches(row Row) bool {
	if c.Field == "" {
		return false
	}
	return slices.Contains(c.Values, row[c.Field])
}

// FieldDefinition is the static description of one column.
type FieldDefinition struct {
	Name    string
	Label   string
	Type    FieldType
	Options []Option

	// Enumerated forces the choice grid even when Type is not FieldChoice.
	Enumerated bool

	// Display overrides the rendering derived from Type.
	Display Display

	// Gate names a boolean field of the same row; when it is not truthy the
	// value is meaningless and renders as not applicable.
	Gate string

	// HiddenWhen marks rows for which the field does not apply at all.
	HiddenWhen Condition
}

// IsChoice reports whether the field is edited through the choice grid.
func (d FieldDefinition) IsChoice() bool {
	return d.Type == FieldChoice || d.Enumerated
}

// DisplayKind resolves the effective display for the field.
func (d FieldDefinition) DisplayKind() Display {
	if d.Display != "" {
		return d.Display
	}
	switch {
	case d.IsChoice():
		return DisplayBadge
	case d.Type == FieldEmail:
		return DisplayEmail
	case d.Type == FieldDate:
		return DisplayDate
	}
	return DisplayText
}

// Applicable reports whether the field can be shown and edited for row.
// INVARIANT: row is not mutated
func (d FieldDefinition) Applicable(row Row) bool {
	if d.HiddenWhen.Matches(row) {
		return false
	}
	if d.Gate != "" && !Truthy(row[d.Gate]) {
		return false
	}
	return true
}

// Truthy interprets the boolean encodings used in stored rows.
func Truthy(v string) bool {
	switch v {
	case "1", "true", "yes", "on", "oui":
		return true
	}
	return false
}

// Catalogue is the ordered field catalogue of one table.
type Catalogue struct {
	table  string
	order  []string
	fields map[string]FieldDefinition
}

// NewCatalogue builds a catalogue for table from defs, in the given order.
// PRE: every def has a non-empty Name and a valid Type
// POST: Returns an error on duplicates or invalid definitions
func NewCatalogue(table string, defs ...FieldDefinition) (*Catalogue, error) {
	c := &Catalogue{
		table:  table,
		fields: make(map[string]FieldDefinition, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("catalogue %s: field without name", table)
		}
		if !d.Type.Valid() {
			return nil, fmt.Errorf("catalogue %s: field %s has invalid type %q", table, d.Name, d.Type)
		}
		if _, dup := c.fields[d.Name]; dup {
			return nil, fmt.Errorf("catalogue %s: duplicate field %s", table, d.Name)
		}
		c.fields[d.Name] = d
		c.order = append(c.order, d.Name)
	}
	return c, nil
}

// MustCatalogue is NewCatalogue for static catalogues declared in code.
func MustCatalogue(table string, defs ...FieldDefinition) *Catalogue {
	c, err := NewCatalogue(table, defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Table returns the table the catalogue describes.
func (c *Catalogue) Table() string { return c.table }

// Field looks up a definition by name.
func (c *Catalogue) Field(name string) (FieldDefinition, bool) {
	d, ok := c.fields[name]
	return d, ok
}

// Lookup is Field returning ErrUnknownField.
func (c *Catalogue) Lookup(name string) (FieldDefinition, error) {
	d, ok := c.fields[name]
	if !ok {
		return FieldDefinition{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, c.table, name)
	}
	return d, nil
}

// Fields returns the definitions in declaration order.
func (c *Catalogue) Fields() []FieldDefinition {
	out := make([]FieldDefinition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.fields[name])
	}
	return out
}

// Dependents returns the fields whose applicability is decided by field,
// through a Gate or a HiddenWhen condition.
func (c *Catalogue) Dependents(field string) []string {
	var out []string
	for _, name := range c.order {
		d := c.fields[name]
		if d.Gate == field || d.HiddenWhen.Field == field {
			out = append(out, name)
		}
	}
	return out
}

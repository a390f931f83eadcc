// Package inline implements in-place editing of a single table cell:
// editor construction, the choice grid, the save/rollback protocol and
// transient feedback next to the cell.
package inline

import (
	"errors"
	"fmt"
	"html/template"
	"strconv"
)

// Domain errors
var (
	ErrUnknownField = errors.New("unknown field")
	ErrNotEditable  = errors.New("field is not editable for this row")
	ErrNotEditing   = errors.New("cell is not being edited")
	ErrInvalidCell  = errors.New("invalid cell identifier")
)

// CellID identifies one editable unit: a field of one entity.
type CellID struct {
	EntityID int64
	Field    string
}

// String returns the stable "<entity>:<field>" form used in markup ids.
func (id CellID) String() string {
	return strconv.FormatInt(id.EntityID, 10) + ":" + id.Field
}

// Validate checks that the identifier can address a cell.
// PRE: none
// POST: Returns ErrInvalidCell when EntityID <= 0 or Field is empty
func (id CellID) Validate() error {
	if id.EntityID <= 0 || id.Field == "" {
		return fmt.Errorf("%w: %q", ErrInvalidCell, id.String())
	}
	return nil
}

// ParseCellID builds a CellID from the string values found in markup.
func ParseCellID(entityID, field string) (CellID, error) {
	n, err := strconv.ParseInt(entityID, 10, 64)
	if err != nil {
		return CellID{}, fmt.Errorf("%w: entity id %q", ErrInvalidCell, entityID)
	}
	id := CellID{EntityID: n, Field: field}
	return id, id.Validate()
}

// Row carries the raw values of the row a cell belongs to, keyed by field name.
// Gates and applicability rules are evaluated against it.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Cell is the idle state of an editable cell as rendered by the host table.
type Cell struct {
	ID      CellID
	Type    FieldType
	Value   string
	Display template.HTML
	Row     Row
}

// NewCell builds a cell for field of row, rendering its display through f.
// PRE: def belongs to the catalogue f was built with
// POST: Display equals f.FormatRow(def.Name, row)
func NewCell(f *Formatter, entityID int64, def FieldDefinition, row Row) Cell {
	row = row.Clone()
	return Cell{
		ID:      CellID{EntityID: entityID, Field: def.Name},
		Type:    def.Type,
		Value:   row[def.Name],
		Display: f.FormatRow(def.Name, row),
		Row:     row,
	}
}

package projections

import (
	"context"
	"fmt"

	"clubadmin/internal/application/tables"
	"clubadmin/internal/inline"
)

// GetTableRowQuery names one row.
type GetTableRowQuery struct {
	Table    string
	EntityID int64
}

// GetTableRowResult carries the raw row and its rendered cells.
type GetTableRowResult struct {
	Row   inline.Row
	Cells []inline.Cell
}

// GetTableRowDeps holds dependencies for GetTableRow.
type GetTableRowDeps struct {
	Registry    *tables.Registry
	MemberStore MemberStore
	EventStore  EventStore
}

// QueryGetTableRow loads one row for remote editors and for re-seeding cells.
// PRE: query.Table is registered, EntityID > 0
// POST: Returns the raw values keyed by field and one cell per catalogue field
func QueryGetTableRow(ctx context.Context, query GetTableRowQuery, deps GetTableRowDeps) (GetTableRowResult, error) {
	f, err := deps.Registry.Formatter(query.Table)
	if err != nil {
		return GetTableRowResult{}, err
	}

	var row inline.Row
	switch query.Table {
	case tables.Members:
		m, err := deps.MemberStore.GetByID(ctx, query.EntityID)
		if err != nil {
			return GetTableRowResult{}, err
		}
		row = m.Row()
	case tables.Events:
		e, err := deps.EventStore.GetByID(ctx, query.EntityID)
		if err != nil {
			return GetTableRowResult{}, err
		}
		row = e.Row()
	default:
		return GetTableRowResult{}, fmt.Errorf("%w: %q", tables.ErrUnknownTable, query.Table)
	}

	result := GetTableRowResult{Row: row}
	for _, d := range f.Catalogue().Fields() {
		result.Cells = append(result.Cells, inline.NewCell(f, query.EntityID, d, row))
	}
	return result, nil
}

package projections

import (
	"context"
	"fmt"

	"clubadmin/internal/adapters/storage/member"
	"clubadmin/internal/application/listutil"
	"clubadmin/internal/application/tables"
	"clubadmin/internal/inline"
)

// Column is one header of an editable table.
type Column struct {
	Field string
	Label string
	Type  inline.FieldType
}

// GridRow is one rendered row with a cell per column.
type GridRow struct {
	EntityID int64
	Heading  bool // event list section heading
	Cells    []inline.Cell
}

// GetTableGridQuery carries query parameters.
type GetTableGridQuery struct {
	Table string
	List  listutil.ListParams
}

// GetTableGridResult carries the query result.
type GetTableGridResult struct {
	Table   string
	Columns []Column
	Rows    []GridRow
	Page    listutil.PageInfo
}

// GetTableGridDeps holds dependencies for GetTableGrid.
type GetTableGridDeps struct {
	Registry    *tables.Registry
	MemberStore MemberStore
	EventStore  EventStore
}

// QueryGetTableGrid renders one page of a table as editable cells.
// The member list is paged and filtered; the event list is always whole.
// PRE: query.Table is registered in deps.Registry
// POST: Every cell's Display equals the formatter output for its row
func QueryGetTableGrid(ctx context.Context, query GetTableGridQuery, deps GetTableGridDeps) (GetTableGridResult, error) {
	f, err := deps.Registry.Formatter(query.Table)
	if err != nil {
		return GetTableGridResult{}, err
	}
	defs := f.Catalogue().Fields()

	result := GetTableGridResult{Table: query.Table}
	for _, d := range defs {
		result.Columns = append(result.Columns, Column{Field: d.Name, Label: d.Label, Type: d.Type})
	}

	rows, page, err := loadRows(ctx, query, deps)
	if err != nil {
		return GetTableGridResult{}, err
	}
	result.Page = page

	for _, r := range rows {
		gr := GridRow{EntityID: r.id, Heading: r.heading}
		for _, d := range defs {
			gr.Cells = append(gr.Cells, inline.NewCell(f, r.id, d, r.values))
		}
		result.Rows = append(result.Rows, gr)
	}
	return result, nil
}

type loadedRow struct {
	id      int64
	heading bool
	values  inline.Row
}

func loadRows(ctx context.Context, query GetTableGridQuery, deps GetTableGridDeps) ([]loadedRow, listutil.PageInfo, error) {
	switch query.Table {
	case tables.Members:
		filter := member.ListFilter{
			Status: query.List.Filters["status"],
			Search: query.List.Search,
			Sort:   query.List.Sort,
			Dir:    query.List.Dir,
		}
		total, err := deps.MemberStore.Count(ctx, filter)
		if err != nil {
			return nil, listutil.PageInfo{}, err
		}
		page := listutil.NewPageInfo(query.List.Page, query.List.PerPage, total)
		filter.Limit = page.PerPage
		filter.Offset = page.Offset()

		members, err := deps.MemberStore.List(ctx, filter)
		if err != nil {
			return nil, listutil.PageInfo{}, err
		}
		out := make([]loadedRow, 0, len(members))
		for _, m := range members {
			out = append(out, loadedRow{id: m.ID, values: m.Row()})
		}
		return out, page, nil

	case tables.Events:
		events, err := deps.EventStore.List(ctx)
		if err != nil {
			return nil, listutil.PageInfo{}, err
		}
		out := make([]loadedRow, 0, len(events))
		for _, e := range events {
			out = append(out, loadedRow{id: e.ID, heading: e.IsTitle(), values: e.Row()})
		}
		return out, listutil.NewPageInfo(1, max(len(out), 1), len(out)), nil
	}
	return nil, listutil.PageInfo{}, fmt.Errorf("%w: %q", tables.ErrUnknownTable, query.Table)
}

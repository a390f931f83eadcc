package web

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"clubadmin/internal/adapters/http/middleware"
	"clubadmin/internal/application/listutil"
	"clubadmin/internal/application/projections"
	"clubadmin/internal/application/tables"
	"clubadmin/internal/domain/calendar"
	"clubadmin/internal/domain/member"
	"clubadmin/internal/inline"
)

// Response headers of the cell action endpoints.
const (
	headerInlineResult = "X-Inline-Result"
	headerRefreshRow   = "X-Inline-Refresh-Row"
)

// cellView is the markup contract of one editable <td>.
type cellView struct {
	Table    string
	EntityID int64
	Field    string
	Type     inline.FieldType
	Value    string
	State    string
	Editable bool
	Inner    template.HTML
	Feedback template.HTML
}

// rowView is one <tr> of an editable table.
type rowView struct {
	Table    string
	EntityID int64
	Heading  bool
	Cells    []cellView
}

// tablePage is the data of table.html.
type tablePage struct {
	Table    string
	Tables   []string
	Columns  []projections.Column
	Rows     []rowView
	Page     listutil.PageInfo
	List     listutil.ListParams
	Paged    bool
	Statuses []inline.Option
	Banner   template.HTML
}

func idleCellView(table string, f *inline.Formatter, c inline.Cell, feedback *inline.Channel) cellView {
	editable := false
	if def, ok := f.Catalogue().Field(c.ID.Field); ok {
		editable = def.Applicable(c.Row)
	}
	v := cellView{
		Table:    table,
		EntityID: c.ID.EntityID,
		Field:    c.ID.Field,
		Type:     c.Type,
		Value:    c.Value,
		State:    inline.StateIdle.String(),
		Editable: editable,
		Inner:    c.Display,
	}
	if feedback != nil {
		v.Feedback = feedback.Render(c.ID)
	}
	return v
}

func controllerCellView(table string, f *inline.Formatter, ctrl *inline.Controller) cellView {
	c := ctrl.Cell()
	v := idleCellView(table, f, c, nil)
	v.State = ctrl.State().String()
	v.Inner = ctrl.Render()
	v.Feedback = ctrl.Feedback()
	return v
}

func buildRowView(table string, f *inline.Formatter, row projections.GridRow, feedback *inline.Channel) rowView {
	rv := rowView{Table: table, EntityID: row.EntityID, Heading: row.Heading}
	for _, c := range row.Cells {
		rv.Cells = append(rv.Cells, idleCellView(table, f, c, feedback))
	}
	return rv
}

// sessionBench returns the workbench of the request's session.
func sessionBench(r *http.Request) (*workbench, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return workbenches.get(sess.ID, sess.Actor), true
}

// handleAdminTable handles GET /admin/{table}, the editable list page.
// Rendering the page replaces every cell, so the table's controllers are
// torn down first; live notices survive.
func handleAdminTable(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	f, err := registry.Formatter(table)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	wb, ok := sessionBench(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	list := listutil.Parse(r.URL.Query(), tables.MemberList)
	grid, err := projections.QueryGetTableGrid(r.Context(), projections.GetTableGridQuery{
		Table: table,
		List:  list,
	}, projections.GetTableGridDeps{
		Registry:    registry,
		MemberStore: stores.MemberStore,
		EventStore:  stores.EventStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	wb.mu.Lock()
	tb, err := wb.bench(table)
	if err == nil {
		for id, ctrl := range tb.cells {
			ctrl.Teardown()
			delete(tb.cells, id)
		}
	}
	wb.mu.Unlock()
	if err != nil {
		internalError(w, err)
		return
	}

	page := tablePage{
		Table:   table,
		Tables:  registry.Names(),
		Columns: grid.Columns,
		Page:    grid.Page,
		List:    list,
		Paged:   table == tables.Members,
		Banner:  wb.banner.Render(),
	}
	if table == tables.Members {
		page.Statuses = f.Labels().OptionsFor(member.FieldStatus, member.Statuses...)
	}
	for _, row := range grid.Rows {
		page.Rows = append(page.Rows, buildRowView(table, f, row, tb.feedback))
	}
	renderTemplate(w, r, http.StatusOK, "table.html", page)
}

// handleAdminRow handles GET /admin/{table}/row/{id}, re-rendering one row
// after a save changed a gate of its other cells.
func handleAdminRow(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	f, err := registry.Formatter(table)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid row id", http.StatusBadRequest)
		return
	}
	wb, ok := sessionBench(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	res, err := projections.QueryGetTableRow(r.Context(), projections.GetTableRowQuery{Table: table, EntityID: id}, projections.GetTableRowDeps{
		Registry:    registry,
		MemberStore: stores.MemberStore,
		EventStore:  stores.EventStore,
	})
	if errors.Is(err, member.ErrNotFound) || errors.Is(err, calendar.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	wb.mu.Lock()
	tb, err := wb.bench(table)
	wb.mu.Unlock()
	if err != nil {
		internalError(w, err)
		return
	}
	row := projections.GridRow{EntityID: id, Heading: res.Row[calendar.FieldRowType] == calendar.RowTitle, Cells: res.Cells}
	renderFragment(w, r, http.StatusOK, "row", buildRowView(table, f, row, tb.feedback))
}

// handleCellAction handles POST /admin/{table}/cell/{action}: open, key,
// choose, blur, commit and cancel. Every action answers with the cell's
// current <td>, except a dropped action, which answers 204 without a body;
// X-Inline-Result carries how a commit settled.
func handleCellAction(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	f, err := registry.Formatter(table)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	wb, ok := sessionBench(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	id, err := inline.ParseCellID(r.PostFormValue("entity_id"), r.PostFormValue("field"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	action := r.PathValue("action")
	value, hasValue := r.PostForm["value"]
	result := inline.ResultNone

	var ctrl *inline.Controller
	if action == "open" {
		ctrl, err = wb.open(ctx, table, id)
		switch {
		case errors.Is(err, inline.ErrNotEditable):
			renderFragment(w, r, http.StatusConflict, "cell", controllerCellView(table, f, ctrl))
			return
		case errors.Is(err, inline.ErrUnknownField):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, member.ErrNotFound), errors.Is(err, calendar.ErrNotFound):
			wb.banner.Show(inline.KindError, fmt.Sprintf("Row **%d** no longer exists. Reload the list.", id.EntityID))
			http.Error(w, "row not found", http.StatusNotFound)
			return
		case err != nil:
			internalError(w, err)
			return
		}
	} else {
		ctrl, err = wb.controller(table, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if hasValue && (action == "key" || action == "blur") {
			// Typing happens in the browser; the latest content travels with the action.
			if err := ctrl.Input(value[0]); err != nil && !errors.Is(err, inline.ErrNotEditing) {
				slog.Debug("workbench_event", "event", "input_ignored", "cell", id.String(), "reason", err.Error())
			}
		}

		switch action {
		case "key":
			result = ctrl.Key(ctx, inline.ParseKey(r.PostFormValue("key")))
		case "choose":
			result = ctrl.Choose(ctx, r.PostFormValue("value"))
		case "blur":
			result = ctrl.Blur(ctx)
		case "commit":
			if !hasValue {
				http.Error(w, "value is required", http.StatusBadRequest)
				return
			}
			result = ctrl.Commit(ctx, value[0])
		case "cancel":
			if ctrl.Cancel() {
				result = inline.ResultCancelled
			}
		default:
			http.NotFound(w, r)
			return
		}
	}

	w.Header().Set(headerInlineResult, result.String())
	if result == inline.ResultDropped {
		// The cell is owned by the save still running; its response carries the markup.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if result == inline.ResultSaved && len(wb.dependents(table, id.Field)) > 0 {
		w.Header().Set(headerRefreshRow, strconv.FormatInt(id.EntityID, 10))
	}
	renderFragment(w, r, http.StatusOK, "cell", controllerCellView(table, f, ctrl))
}

// handleBannerDismiss handles POST /admin/banner/dismiss.
func handleBannerDismiss(w http.ResponseWriter, r *http.Request) {
	wb, ok := sessionBench(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	wb.banner.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

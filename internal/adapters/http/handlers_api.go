package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"clubadmin/internal/adapters/http/middleware"
	auditStore "clubadmin/internal/adapters/storage/audit"
	"clubadmin/internal/application/orchestrators"
	"clubadmin/internal/application/projections"
	"clubadmin/internal/application/tables"
	"clubadmin/internal/domain/audit"
	"clubadmin/internal/domain/calendar"
	"clubadmin/internal/domain/member"
	"clubadmin/internal/inline"
)

// RowResponse is the body of GET /api/{table}/row.
type RowResponse struct {
	Success bool    `json:"success"`
	Data    RowData `json:"data"`
}

// RowData carries the raw values of one row, keyed by field name.
type RowData struct {
	ID      int64             `json:"id,omitempty"`
	Row     map[string]string `json:"row,omitempty"`
	Message string            `json:"message,omitempty"`
}

// HistoryResponse is the body of GET /api/{table}/history.
type HistoryResponse struct {
	Success bool        `json:"success"`
	Data    HistoryData `json:"data"`
}

// HistoryData lists the recorded changes of one row, newest first.
type HistoryData struct {
	Changes []audit.Change `json:"changes"`
	Message string         `json:"message,omitempty"`
}

// Bounds of the history limit parameter.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// changeLog returns the change recorder, or nil when history is disabled.
func changeLog() orchestrators.ChangeRecorder {
	if stores.ChangeStore == nil {
		return nil
	}
	return stores.ChangeStore
}

// applySave runs the field update of table and shapes the outcome as a save
// envelope. Rejections carry their own message; internal failures are logged
// and answered with the generic save-failed message.
// PRE: stores and registry are set
// POST: Exactly one store write on success, none otherwise
func applySave(ctx context.Context, table string, input orchestrators.UpdateFieldInput) (inline.Envelope, int) {
	var (
		res orchestrators.UpdateFieldResult
		err error
	)
	switch table {
	case tables.Members:
		res, err = orchestrators.ExecuteUpdateMemberField(ctx, input, orchestrators.UpdateMemberFieldDeps{
			MemberStore: stores.MemberStore,
			ChangeLog:   changeLog(),
		})
	case tables.Events:
		res, err = orchestrators.ExecuteUpdateEventField(ctx, input, orchestrators.UpdateEventFieldDeps{
			EventStore: stores.EventStore,
			ChangeLog:  changeLog(),
		})
	default:
		return inline.Fail("unknown table"), http.StatusNotFound
	}

	if err == nil {
		return inline.Succeed(res.Value), http.StatusOK
	}
	if orchestrators.IsRejected(err) {
		slog.Info("save_rejected",
			"table", table,
			"entity_id", input.EntityID,
			"field", input.Field,
			"actor", input.Actor,
			"request_id", input.RequestID,
			"reason", err.Error(),
		)
		status := http.StatusUnprocessableEntity
		if errors.Is(err, member.ErrNotFound) || errors.Is(err, calendar.ErrNotFound) {
			status = http.StatusNotFound
		}
		return inline.Fail(err.Error()), status
	}

	slog.Error("internal_error", "error", err.Error(), "table", table, "request_id", input.RequestID)
	return inline.Fail(saveFailedMessage(table)), http.StatusInternalServerError
}

func saveFailedMessage(table string) string {
	if f, err := registry.Formatter(table); err == nil {
		return f.Labels().Messages().SaveFailed
	}
	return inline.DefaultMessages().SaveFailed
}

// handleSaveField handles POST /api/{table}/field, the save contract of the
// inline editor: form fields entity_id, field, value and optional request_id.
func handleSaveField(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		writeEnvelope(w, http.StatusUnauthorized, inline.Fail("not authenticated"))
		return
	}
	if err := r.ParseForm(); err != nil {
		writeEnvelope(w, http.StatusBadRequest, inline.Fail("invalid form submission"))
		return
	}

	id, err := strconv.ParseInt(r.PostFormValue(inline.FormEntityID), 10, 64)
	if err != nil || id <= 0 {
		writeEnvelope(w, http.StatusBadRequest, inline.Fail("entity_id must be a positive integer"))
		return
	}
	field := r.PostFormValue(inline.FormField)
	if field == "" {
		writeEnvelope(w, http.StatusBadRequest, inline.Fail("field is required"))
		return
	}
	requestID := r.PostFormValue(inline.FormRequestID)
	if requestID == "" {
		requestID = middleware.RequestIDFromContext(r.Context())
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	env, status := applySave(r.Context(), r.PathValue("table"), orchestrators.UpdateFieldInput{
		EntityID:  id,
		Field:     field,
		Value:     r.PostFormValue(inline.FormValue),
		Actor:     p.Actor,
		RequestID: requestID,
	})
	writeEnvelope(w, status, env)
}

// handleGetRow handles GET /api/{table}/row?id=N for remote editors.
func handleGetRow(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.PrincipalFromContext(r.Context()); !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		writeJSON(w, http.StatusUnauthorized, RowResponse{Data: RowData{Message: "not authenticated"}})
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, RowResponse{Data: RowData{Message: "id must be a positive integer"}})
		return
	}

	res, err := projections.QueryGetTableRow(r.Context(), projections.GetTableRowQuery{
		Table:    r.PathValue("table"),
		EntityID: id,
	}, projections.GetTableRowDeps{
		Registry:    registry,
		MemberStore: stores.MemberStore,
		EventStore:  stores.EventStore,
	})
	switch {
	case errors.Is(err, tables.ErrUnknownTable):
		writeJSON(w, http.StatusNotFound, RowResponse{Data: RowData{Message: "unknown table"}})
		return
	case errors.Is(err, member.ErrNotFound), errors.Is(err, calendar.ErrNotFound):
		writeJSON(w, http.StatusNotFound, RowResponse{Data: RowData{Message: err.Error()}})
		return
	case err != nil:
		slog.Error("internal_error", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, RowResponse{Data: RowData{Message: "internal server error"}})
		return
	}
	writeJSON(w, http.StatusOK, RowResponse{Success: true, Data: RowData{ID: id, Row: res.Row}})
}

// handleGetHistory handles GET /api/{table}/history?id=N[&field=F][&limit=L].
func handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.PrincipalFromContext(r.Context()); !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		writeJSON(w, http.StatusUnauthorized, HistoryResponse{Data: HistoryData{Message: "not authenticated"}})
		return
	}
	table := r.PathValue("table")
	if _, err := registry.Formatter(table); err != nil {
		writeJSON(w, http.StatusNotFound, HistoryResponse{Data: HistoryData{Message: "unknown table"}})
		return
	}
	q := r.URL.Query()
	id, err := strconv.ParseInt(q.Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, HistoryResponse{Data: HistoryData{Message: "id must be a positive integer"}})
		return
	}
	limit := defaultHistoryLimit
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= maxHistoryLimit {
		limit = l
	}

	changes := []audit.Change{}
	if stores.ChangeStore != nil {
		listed, err := stores.ChangeStore.List(r.Context(), auditStore.Filter{Table: table, EntityID: id, Field: q.Get("field")}, limit)
		if err != nil {
			internalError(w, err)
			return
		}
		if listed != nil {
			changes = listed
		}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Success: true, Data: HistoryData{Changes: changes}})
}

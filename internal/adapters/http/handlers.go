package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"

	"clubadmin/internal/adapters/http/middleware"
	"clubadmin/internal/application/listutil"
	"clubadmin/internal/application/tables"
	"clubadmin/internal/inline"
)

// maxActorLength bounds the display name typed on the login form.
const maxActorLength = 60

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// writeEnvelope writes the save-contract JSON response.
func writeEnvelope(w http.ResponseWriter, status int, env inline.Envelope) {
	writeJSON(w, status, env)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "error", err.Error())
	}
}

// templateFuncs returns the helpers available to every template.
func templateFuncs(r *http.Request) template.FuncMap {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())
	return template.FuncMap{
		"csrfToken":    func() string { return csrf.Token(r) },
		"csrfField":    func() template.HTML { return csrf.TemplateField(r) },
		"currentActor": func() string { return sess.Actor },
		"isLoggedIn":   func() bool { return loggedIn },
		"add":          func(a, b int) int { return a + b },
		"sub":          func(a, b int) int { return a - b },
		"pageQuery": func(list listutil.ListParams, page int) template.URL {
			return template.URL(list.Query(page).Encode())
		},
		"sortKey": func(field string) string {
			key, _ := tables.MemberSortKey(field)
			return key
		},
		"sortQuery": func(list listutil.ListParams, col string) template.URL {
			return template.URL(list.SortedBy(col).Query(1).Encode())
		},
	}
}

// renderTemplate renders templateName inside the layout.
func renderTemplate(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	tpl, err := template.New("layout.html").Funcs(templateFuncs(r)).ParseFS(templateFS,
		"templates/layout.html", "templates/cell.html", "templates/"+templateName)
	if err != nil {
		internalError(w, fmt.Errorf("parse %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tpl.Execute(w, data); err != nil {
		slog.Error("render_error", "template", templateName, "error", err.Error())
	}
}

// renderFragment renders one named block of cell.html without the layout.
func renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	tpl, err := template.New("cell.html").Funcs(templateFuncs(r)).ParseFS(templateFS, "templates/cell.html")
	if err != nil {
		internalError(w, fmt.Errorf("parse fragments: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render_error", "template", name, "error", err.Error())
	}
}

// handleHome sends visitors to the member list.
func handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/"+tables.Members, http.StatusSeeOther)
}

// handleHealth reports whether storage answers.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if healthCheck != nil {
		if err := healthCheck(r.Context()); err != nil {
			slog.Error("health_check_failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin handles GET (form) and POST (authenticate) for /login.
// The admin key is the only credential; the name typed next to it is the
// actor recorded on every save of the session.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/admin/"+tables.Members, http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, http.StatusOK, "login.html", map[string]any{
			"Error": "",
			"Name":  "",
			"Next":  r.URL.Query().Get("next"),
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	actor := strings.TrimSpace(r.PostFormValue("name"))
	if actor == "" {
		actor = "admin"
	}
	if len(actor) > maxActorLength {
		actor = actor[:maxActorLength]
	}

	if !middleware.VerifyAPIKey(adminKeyHash, r.PostFormValue("key")) {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "invalid admin key")
		renderTemplate(w, r, http.StatusUnauthorized, "login.html", map[string]any{
			"Error": "Invalid admin key",
			"Name":  actor,
			"Next":  r.PostFormValue("next"),
		})
		return
	}

	token, sess, err := sessions.Create(actor)
	if err != nil {
		internalError(w, err)
		return
	}
	slog.Info("auth_event", "event", "login", "actor", actor, "session_id", sess.ID)

	middleware.SetSessionCookie(w, token)
	next := r.PostFormValue("next")
	if u, err := url.Parse(next); next == "" || err != nil || u.IsAbs() || !strings.HasPrefix(next, "/admin/") {
		next = "/admin/" + tables.Members
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.SessionToken(r); ok {
		sessions.Delete(token)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

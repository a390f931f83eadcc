package web

import (
	"net/http"

	"clubadmin/internal/adapters/http/middleware"
)

// registerRoutes binds every endpoint to mux.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleHome)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /login", handleLogin)
	mux.HandleFunc("POST /login", handleLogin)
	mux.HandleFunc("POST /logout", handleLogout)

	// Save contract and row reads, session+CSRF or Bearer admin key
	mux.HandleFunc("POST /api/{table}/field", handleSaveField)
	mux.HandleFunc("GET /api/{table}/row", handleGetRow)
	mux.HandleFunc("GET /api/{table}/history", handleGetHistory)

	// Server-driven editing, browser sessions only
	mux.Handle("GET /admin/{table}", middleware.RequireSession(http.HandlerFunc(handleAdminTable)))
	mux.Handle("GET /admin/{table}/row/{id}", middleware.RequireSession(http.HandlerFunc(handleAdminRow)))
	mux.Handle("POST /admin/{table}/cell/{action}", middleware.RequireSession(http.HandlerFunc(handleCellAction)))
	mux.Handle("POST /admin/banner/dismiss", middleware.RequireSession(http.HandlerFunc(handleBannerDismiss)))
}

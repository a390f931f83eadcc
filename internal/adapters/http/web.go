package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"clubadmin/internal/adapters/http/middleware"
	auditStore "clubadmin/internal/adapters/storage/audit"
	calendarStore "clubadmin/internal/adapters/storage/calendar"
	memberStore "clubadmin/internal/adapters/storage/member"
	"clubadmin/internal/application/tables"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Stores holds all storage dependencies.
type Stores struct {
	MemberStore memberStore.Store
	EventStore  calendarStore.Store
	ChangeStore auditStore.Store // optional: no history without it
}

// Options configures NewMux.
type Options struct {
	Stores       *Stores
	Registry     *tables.Registry
	CSRFKey      []byte
	AdminKeyHash []byte
	Secure       bool // production: Secure cookies, HTTPS-only CSRF checks

	// TrustedOrigins are extra host[:port] values accepted by the CSRF check.
	TrustedOrigins []string

	// SlowRequest is the Timing threshold; zero uses the middleware default.
	SlowRequest time.Duration

	// Health reports storage reachability for /healthz. Nil always reports ok.
	Health func(ctx context.Context) error
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global table registry (set by NewMux)
var registry *tables.Registry

// Global session store instance
var sessions *middleware.SessionStore

// Global per-session editing state
var workbenches *workbenchStore

// adminKeyHash verifies the login form and Bearer API calls.
var adminKeyHash []byte

// healthCheck backs /healthz.
var healthCheck func(ctx context.Context) error

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 20

// NewMux wires HTTP handlers for the app.
func NewMux(opts Options) http.Handler {
	stores = opts.Stores
	registry = opts.Registry
	adminKeyHash = opts.AdminKeyHash
	healthCheck = opts.Health
	sessions = middleware.NewSessionStore()
	workbenches = newWorkbenchStore()
	sessions.OnExpire(func(s middleware.Session) { workbenches.drop(s.ID) })
	middleware.SecureCookies = opts.Secure

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	registerRoutes(mux)

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{
			Secure:         opts.Secure,
			TrustedOrigins: opts.TrustedOrigins,
		}),
		middleware.Auth(sessions, opts.AdminKeyHash),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.SlowRequest),
	)
}

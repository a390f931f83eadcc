package browser_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/crypto/bcrypt"

	_ "modernc.org/sqlite"

	web "clubadmin/internal/adapters/http"
	"clubadmin/internal/adapters/storage"
	calendarStore "clubadmin/internal/adapters/storage/calendar"
	memberStore "clubadmin/internal/adapters/storage/member"
	"clubadmin/internal/application/orchestrators"
	"clubadmin/internal/application/tables"
	"clubadmin/internal/inline"
)

const adminKey = "browser test key"

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Stores  *web.Stores
}

// newTestApp creates a fully wired app with a temp SQLite DB seeded with the
// demo rows and starts an HTTP server.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := storage.MigrateDB(db, dbPath); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	stores := &web.Stores{
		MemberStore: memberStore.NewSQLiteStore(db),
		EventStore:  calendarStore.NewSQLiteStore(db),
	}
	ctx := context.Background()
	if _, err := orchestrators.ExecuteSeedDemo(ctx, orchestrators.SeedDemoDeps{
		MemberStore: stores.MemberStore,
		EventStore:  stores.EventStore,
	}); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash admin key: %v", err)
	}

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	web.RateLimitPerSecond = 1000
	mux := web.NewMux(web.Options{
		Stores:       stores,
		Registry:     tables.NewRegistry(inline.NewLabels(tables.DefaultBadges(), inline.DefaultMessages())),
		CSRFKey:      []byte("0123456789abcdef0123456789abcdef"),
		AdminKeyHash: hash,
		TrustedOrigins: []string{
			fmt.Sprintf("127.0.0.1:%d", port),
			fmt.Sprintf("localhost:%d", port),
		},
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Stores:  stores,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// login signs in with the admin key and waits for the members list.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/login"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=name]").Fill("Browser"); err != nil {
		t.Fatalf("failed to fill name: %v", err)
	}
	if err := page.Locator("input[name=key]").Fill(adminKey); err != nil {
		t.Fatalf("failed to fill key: %v", err)
	}
	if err := page.Locator("button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click sign in: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+"/admin/"+tables.Members, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect to the members list: %v", err)
	}
}

// cell returns the locator of the cell (id, field).
func cell(page playwright.Page, id int64, field string) playwright.Locator {
	return page.Locator(fmt.Sprintf("#cell-%d-%s", id, field))
}

// waitState waits until the cell reports state.
func waitState(t *testing.T, page playwright.Page, id int64, field, state string) {
	t.Helper()
	sel := fmt.Sprintf("#cell-%d-%s[data-state=%q]", id, field, state)
	if _, err := page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(5000),
	}); err != nil {
		t.Fatalf("cell %d/%s never reached %s: %v", id, field, state, err)
	}
}

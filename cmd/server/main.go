package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	web "clubadmin/internal/adapters/http"
	"clubadmin/internal/adapters/storage"
	auditStore "clubadmin/internal/adapters/storage/audit"
	calendarStore "clubadmin/internal/adapters/storage/calendar"
	memberStore "clubadmin/internal/adapters/storage/member"
	"clubadmin/internal/application/orchestrators"
	"clubadmin/internal/application/tables"
	"clubadmin/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Production() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Initialize database with WAL mode, foreign keys, and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Query instrumentation: slow statements are logged above cfg.SlowQuery
	timedDB := storage.NewTimedDB(db, cfg.SlowQuery)
	stores := &web.Stores{
		MemberStore: memberStore.NewSQLiteStore(timedDB),
		EventStore:  calendarStore.NewSQLiteStore(timedDB),
		ChangeStore: auditStore.NewSQLiteStore(timedDB),
	}

	if cfg.SeedDemo {
		res, err := orchestrators.ExecuteSeedDemo(context.Background(), orchestrators.SeedDemoDeps{
			MemberStore: stores.MemberStore,
			EventStore:  stores.EventStore,
		})
		if err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
		slog.Info("seed_event", "event", "demo_seeded", "members", res.Members, "events", res.Events)
	}

	labels, err := config.LoadLabels(cfg.LabelsPath, tables.DefaultBadges())
	if err != nil {
		log.Fatalf("failed to load labels: %v", err)
	}

	var trusted []string
	if v := os.Getenv(config.EnvTrustedOrigins); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				trusted = append(trusted, origin)
			}
		}
	}

	mux := web.NewMux(web.Options{
		Stores:         stores,
		Registry:       tables.NewRegistry(labels),
		CSRFKey:        cfg.CSRFKey,
		AdminKeyHash:   cfg.AdminKeyHash,
		Secure:         cfg.Production(),
		TrustedOrigins: trusted,
		Health:         timedDB.Ping,
	})

	slog.Info("server_start",
		"version", version,
		"addr", cfg.Addr,
		"env", cfg.Mode,
		"schema", storage.LatestSchemaVersion(),
	)
	if !cfg.Production() && os.Getenv(config.EnvAdminKey) == "" {
		slog.Warn("config_warning", "setting", config.EnvAdminKey, "detail", "using development admin key "+config.DevAdminKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown", "error", err.Error())
	}
	stats := timedDB.Stats()
	slog.Info("server_stop", "queries", stats.Queries, "slow_queries", stats.Slow, "query_errors", stats.Errors)
}

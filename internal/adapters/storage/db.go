package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migration upgrades the schema by one version inside tx.
type migration func(tx *sql.Tx) error

// migrations is the ordered schema history. Index i upgrades version i to i+1.
var migrations = []migration{
	migrateBaseline,
	migrateEventPosition,
	migrateFieldChange,
}

// LatestSchemaVersion returns the version reached after all migrations.
// PRE: none
// POST: returns len(migrations)
func LatestSchemaVersion() int {
	return len(migrations)
}

// SchemaVersion returns the current schema version, 0 for an empty database.
// PRE: db is a valid database connection
// POST: returns the highest applied version
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// InitDB enables the connection pragmas and applies every pending migration.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	return MigrateDB(db, ":memory:")
}

// MigrateDB applies pending migrations one transaction at a time.
// For a file database with data already in it, a copy is written to
// "<path>.bak-v<N>" before upgrading from version N.
// PRE: db is a valid database connection, path is the database file or ":memory:"
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(db *sql.DB, path string) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if current > 0 && path != "" && path != ":memory:" {
		backup := fmt.Sprintf("%s.bak-v%d", path, current)
		if _, err := db.Exec("VACUUM INTO ?", backup); err != nil {
			return fmt.Errorf("failed to back up database before migration: %w", err)
		}
		slog.Info("db_backup", "path", backup, "version", current)
	}

	for v := current; v < LatestSchemaVersion(); v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if err := migrations[v](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		slog.Info("db_migrated", "version", v+1)
	}
	return nil
}

func migrateBaseline(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS member (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		birth_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		role TEXT NOT NULL,
		payment_required INTEGER NOT NULL DEFAULT 0,
		payment_date TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS event (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		row_type TEXT NOT NULL,
		event_date TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		registration_required INTEGER NOT NULL DEFAULT 0,
		requires_payment INTEGER NOT NULL DEFAULT 0,
		payment_deadline TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_member_last_name ON member(last_name);
	`)
	return err
}

// migrateEventPosition lets title rows and events keep a manual order.
func migrateEventPosition(tx *sql.Tx) error {
	if _, err := tx.Exec("ALTER TABLE event ADD COLUMN position INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE event SET position = id"); err != nil {
		return err
	}
	_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_event_position ON event(position)")
	return err
}

// migrateFieldChange adds the history of confirmed cell saves.
func migrateFieldChange(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS field_change (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		table_name TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		field TEXT NOT NULL,
		previous TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_field_change_entity ON field_change(table_name, entity_id, timestamp);
	`)
	return err
}

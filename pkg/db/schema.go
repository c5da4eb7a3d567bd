package db

import (
	"context"
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 2

// Version 1: profile and listen address.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS profiles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    timezone    TEXT NOT NULL DEFAULT 'UTC',
    is_active   INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS api_servers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    profile_id  INTEGER NOT NULL UNIQUE REFERENCES profiles(id) ON DELETE CASCADE,
    host        TEXT NOT NULL DEFAULT '0.0.0.0',
    port        INTEGER NOT NULL DEFAULT 8080,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_profiles_active ON profiles(is_active);
`

// Version 2: actuator status cache and the append-only logs.
const schemaV2 = `
CREATE TABLE IF NOT EXISTS actuator_status (
    actuator_id  TEXT PRIMARY KEY,
    state        TEXT NOT NULL,
    updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS commands (
    id              TEXT PRIMARY KEY,
    actuator_id     TEXT NOT NULL,
    actuator_type   TEXT NOT NULL DEFAULT '',
    state           TEXT NOT NULL,
    value           INTEGER,
    reason          TEXT NOT NULL DEFAULT '',
    triggered_by    TEXT NOT NULL,
    status          TEXT NOT NULL,
    reported_state  TEXT NOT NULL DEFAULT '',
    error           TEXT NOT NULL DEFAULT '',
    issued_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
    id          TEXT PRIMARY KEY,
    device_id   TEXT NOT NULL,
    location    TEXT NOT NULL,
    readings    TEXT NOT NULL DEFAULT '[]',
    commands    TEXT NOT NULL DEFAULT '[]',
    decided_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS gateway_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id       TEXT NOT NULL,
    location        TEXT NOT NULL,
    original_count  INTEGER NOT NULL,
    filtered_count  INTEGER NOT NULL,
    outlier_count   INTEGER NOT NULL,
    outliers        TEXT NOT NULL DEFAULT '[]',
    logged_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commands_actuator ON commands(actuator_id, issued_at);
CREATE INDEX IF NOT EXISTS idx_decisions_time ON decisions(decided_at);
CREATE INDEX IF NOT EXISTS idx_gateway_logs_device ON gateway_logs(device_id, logged_at);
`

var migrations = []struct {
	version int
	sql     string
}{
	{1, schemaV1},
	{2, schemaV2},
}

// Migrate brings the schema up to date, one version per transaction.
func (db *DB) Migrate(ctx context.Context) error {
	version, err := db.getSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := db.applySchema(ctx, m.version, m.sql); err != nil {
			return fmt.Errorf("failed to apply schema v%d: %w", m.version, err)
		}
	}
	return nil
}

// getSchemaVersion returns the current schema version, or 0 on a fresh file.
func (db *DB) getSchemaVersion(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var version int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (db *DB) applySchema(ctx context.Context, version int, ddl string) error {
	return db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	return db.getSchemaVersion(ctx)
}

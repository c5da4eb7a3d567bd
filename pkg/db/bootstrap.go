package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Bootstrap seeds the default profile on first run. It is a no-op once a
// profile exists.
func (db *DB) Bootstrap(ctx context.Context) error {
	needs, err := db.NeedsBootstrap(ctx)
	if err != nil {
		return fmt.Errorf("failed to check profiles: %w", err)
	}
	if !needs {
		return nil
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO profiles (name, timezone, is_active)
		VALUES (?, ?, 1)
	`, "default", detectTimezone())
	if err != nil {
		return fmt.Errorf("failed to create default profile: %w", err)
	}

	profileID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get profile ID: %w", err)
	}
	return db.SetListenAddress(ctx, profileID, "0.0.0.0", 8080)
}

// NeedsBootstrap reports whether no profile has been created yet.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

// SeedActuators inserts a status row for every actuator that has none, so
// a fresh database starts from the configured initial states.
func (db *DB) SeedActuators(ctx context.Context, initial map[string]string, at time.Time) error {
	for id, st := range initial {
		_, err := db.ExecContext(ctx, `
			INSERT OR IGNORE INTO actuator_status (actuator_id, state, updated_at)
			VALUES (?, ?, ?)
		`, id, st, formatTime(at))
		if err != nil {
			return fmt.Errorf("failed to seed actuator %s: %w", id, err)
		}
	}
	return nil
}

// detectTimezone reads TZ, then /etc/timezone, then the /etc/localtime link.
func detectTimezone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return tz
	}
	if data, err := os.ReadFile("/etc/timezone"); err == nil {
		if tz := strings.TrimSpace(string(data)); tz != "" {
			return tz
		}
	}
	if link, err := os.Readlink("/etc/localtime"); err == nil {
		if idx := strings.Index(link, "zoneinfo/"); idx != -1 {
			return link[idx+len("zoneinfo/"):]
		}
	}
	return "UTC"
}

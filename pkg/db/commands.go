package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/urmzd/hearth/pkg/actuator"
)

// timeLayout sorts lexicographically; all stored times are UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

// RecordCommand appends a dispatch result to the command log. An applied
// result also refreshes the actuator status cache, in the same transaction.
func (db *DB) RecordCommand(ctx context.Context, res actuator.Result) error {
	cmd := res.Command
	var value sql.NullInt64
	if cmd.Value != nil {
		value = sql.NullInt64{Int64: int64(*cmd.Value), Valid: true}
	}

	return db.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO commands (id, actuator_id, actuator_type, state, value, reason,
				triggered_by, status, reported_state, error, issued_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, cmd.ID, cmd.ActuatorID, cmd.ActuatorType, cmd.State, value, cmd.Reason,
			cmd.TriggeredBy, res.Status, res.ReportedState, res.Error, formatTime(cmd.Timestamp))
		if err != nil {
			return fmt.Errorf("failed to insert command: %w", err)
		}

		if res.Status != actuator.StatusApplied {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO actuator_status (actuator_id, state, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(actuator_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
		`, cmd.ActuatorID, res.ReportedState, formatTime(cmd.Timestamp))
		if err != nil {
			return fmt.Errorf("failed to update actuator status: %w", err)
		}
		return nil
	})
}

// RecentCommands returns the latest results, newest first. An empty
// actuatorID lists every actuator.
func (db *DB) RecentCommands(ctx context.Context, actuatorID string, limit int) ([]actuator.Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, actuator_id, actuator_type, state, value, reason, triggered_by,
			status, reported_state, error, issued_at
		FROM commands
		WHERE (? = '' OR actuator_id = ?)
		ORDER BY issued_at DESC, rowid DESC
		LIMIT ?
	`, actuatorID, actuatorID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []actuator.Result
	for rows.Next() {
		var res actuator.Result
		var value sql.NullInt64
		var issuedAt string
		cmd := &res.Command
		if err := rows.Scan(&cmd.ID, &cmd.ActuatorID, &cmd.ActuatorType, &cmd.State, &value,
			&cmd.Reason, &cmd.TriggeredBy, &res.Status, &res.ReportedState, &res.Error, &issuedAt); err != nil {
			return nil, err
		}
		if value.Valid {
			cmd.Value = actuator.IntValue(int(value.Int64))
		}
		cmd.Timestamp = parseTime(issuedAt)
		out = append(out, res)
	}
	return out, rows.Err()
}

// ActuatorStates returns the persisted state of every actuator.
func (db *DB) ActuatorStates(ctx context.Context) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT actuator_id, state FROM actuator_status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	states := make(map[string]string)
	for rows.Next() {
		var id, st string
		if err := rows.Scan(&id, &st); err != nil {
			return nil, err
		}
		states[id] = st
	}
	return states, rows.Err()
}

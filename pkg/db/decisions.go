package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/sensor"
)

// Decision is one processed batch that produced commands.
type Decision struct {
	ID        string            `json:"decision_id"`
	DeviceID  string            `json:"device_id"`
	Location  string            `json:"location"`
	Readings  []sensor.Reading  `json:"readings"`
	Results   []actuator.Result `json:"commands"`
	DecidedAt time.Time         `json:"timestamp"`
}

// RecordDecision appends d to the decision log.
func (db *DB) RecordDecision(ctx context.Context, d Decision) error {
	readings, err := json.Marshal(d.Readings)
	if err != nil {
		return fmt.Errorf("failed to encode readings: %w", err)
	}
	results, err := json.Marshal(d.Results)
	if err != nil {
		return fmt.Errorf("failed to encode commands: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO decisions (id, device_id, location, readings, commands, decided_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.DeviceID, d.Location, string(readings), string(results), formatTime(d.DecidedAt))
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// RecentDecisions returns up to limit decisions, newest first.
func (db *DB) RecentDecisions(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, device_id, location, readings, commands, decided_at
		FROM decisions
		ORDER BY decided_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Decision
	for rows.Next() {
		var d Decision
		var readings, results, decidedAt string
		if err := rows.Scan(&d.ID, &d.DeviceID, &d.Location, &readings, &results, &decidedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(readings), &d.Readings); err != nil {
			return nil, fmt.Errorf("decision %s: bad readings: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(results), &d.Results); err != nil {
			return nil, fmt.Errorf("decision %s: bad commands: %w", d.ID, err)
		}
		d.DecidedAt = parseTime(decidedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

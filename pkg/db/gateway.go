package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urmzd/hearth/pkg/anomaly"
)

// RecordGatewayLog appends one filtering summary.
func (db *DB) RecordGatewayLog(ctx context.Context, e anomaly.LogEntry) error {
	details := e.Details
	if details == nil {
		details = []anomaly.Outlier{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode outliers: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO gateway_logs (device_id, location, original_count, filtered_count,
			outlier_count, outliers, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.DeviceID, e.Location, e.Counts.Original, e.Counts.Filtered, e.Counts.Outliers,
		string(raw), formatTime(e.At))
	if err != nil {
		return fmt.Errorf("failed to insert gateway log: %w", err)
	}
	return nil
}

// GatewayLogs returns the latest summaries, newest first. An empty deviceID
// lists every device.
func (db *DB) GatewayLogs(ctx context.Context, deviceID string, limit int) ([]anomaly.LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `
		SELECT device_id, location, original_count, filtered_count, outlier_count, outliers, logged_at
		FROM gateway_logs
		WHERE (? = '' OR device_id = ?)
		ORDER BY logged_at DESC, id DESC
		LIMIT ?
	`, deviceID, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []anomaly.LogEntry
	for rows.Next() {
		var e anomaly.LogEntry
		var raw, at string
		if err := rows.Scan(&e.DeviceID, &e.Location, &e.Counts.Original, &e.Counts.Filtered,
			&e.Counts.Outliers, &raw, &at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &e.Details); err != nil {
			return nil, fmt.Errorf("gateway log for %s: bad outliers: %w", e.DeviceID, err)
		}
		e.At = parseTime(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var ErrNoActiveProfile = errors.New("no active profile found")

// Profile is the installation record: its timezone and the address the API
// server listens on.
type Profile struct {
	ID        int64
	Name      string
	Timezone  string
	Host      string
	Port      int
	CreatedAt time.Time
}

// Address returns the listen address (host:port).
func (p *Profile) Address() string {
	if p == nil || p.Port == 0 {
		return "0.0.0.0:8080"
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Location resolves the profile timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p == nil || p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ActiveProfile loads the active profile with its API server settings.
func (db *DB) ActiveProfile(ctx context.Context) (*Profile, error) {
	p := &Profile{}
	var createdAt string
	var host sql.NullString
	var port sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.timezone, p.created_at, a.host, a.port
		FROM profiles p
		LEFT JOIN api_servers a ON a.profile_id = p.id
		WHERE p.is_active = 1
		LIMIT 1
	`).Scan(&p.ID, &p.Name, &p.Timezone, &createdAt, &host, &port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveProfile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active profile: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	p.Host = host.String
	p.Port = int(port.Int64)
	return p, nil
}

// SetListenAddress stores the API listen address for a profile.
func (db *DB) SetListenAddress(ctx context.Context, profileID int64, host string, port int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO api_servers (profile_id, host, port) VALUES (?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET host = excluded.host, port = excluded.port
	`, profileID, host, port)
	if err != nil {
		return fmt.Errorf("failed to set listen address: %w", err)
	}
	return nil
}

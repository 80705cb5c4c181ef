package state

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key         TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT '',
	confidence  DOUBLE NOT NULL,
	at_unix_ns  BIGINT NOT NULL,
	emergency   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS events_at ON events (at_unix_ns);
`

type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	// Monitor and web handlers share a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) GetBool(ctx context.Context, key string) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("state: get %s: %w", key, err)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("state: key %s holds %q: %w", key, raw, err)
	}
	return v, nil
}

func (s *SQLite) SetBool(ctx context.Context, key string, v bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, strconv.FormatBool(v))
	if err != nil {
		return fmt.Errorf("state: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) AppendEvent(ctx context.Context, rec EventRecord) error {
	emergency := 0
	if rec.Emergency {
		emergency = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, type, kind, confidence, at_unix_ns, emergency) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Type, rec.Kind, rec.Confidence, rec.At.UnixNano(), emergency)
	if err != nil {
		return fmt.Errorf("state: append event: %w", err)
	}
	return nil
}

func (s *SQLite) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, kind, confidence, at_unix_ns, emergency FROM events ORDER BY at_unix_ns DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("state: query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec       EventRecord
			atNs      int64
			emergency int
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Kind, &rec.Confidence, &atNs, &emergency); err != nil {
			return nil, fmt.Errorf("state: scan event: %w", err)
		}
		rec.At = time.Unix(0, atNs).UTC()
		rec.Emergency = emergency != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS journal (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER NOT NULL,
        kind TEXT NOT NULL,
        request_id TEXT,
        agent_id TEXT,
        lat REAL,
        lng REAL,
        detail TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the entry to the database.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal (ts, kind, request_id, agent_id, lat, lng, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UnixNano(), string(e.Kind), e.RequestID, e.AgentID, e.Position.Lat, e.Position.Lng, e.Detail)
	return err
}

// Query returns entries matching q in insertion order.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Entry, error) {
	var args []any
	query := `SELECT ts, kind, request_id, agent_id, lat, lng, detail FROM journal WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	if q.RequestID != "" {
		query += ` AND request_id = ?`
		args = append(args, q.RequestID)
	}
	if q.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, q.AgentID)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			ts   int64
			kind string
		)
		if err := rows.Scan(&ts, &kind, &e.RequestID, &e.AgentID, &e.Position.Lat, &e.Position.Lng, &e.Detail); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, ts)
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.truncate(out), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

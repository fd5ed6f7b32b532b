// Package journal keeps an audit trail of dispatch decisions and deliveries.
// Entries are written as they happen and are never read back into the
// simulation: the journal is an output, not a state store.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/dronedispatch/core/geo"
)

// Kind names the decision an entry records.
type Kind string

const (
	KindAssigned  Kind = "assigned"
	KindQueued    Kind = "queued"
	KindDelivered Kind = "delivered"
	KindReleased  Kind = "released"
	KindCommand   Kind = "command"
)

// Entry is one journal line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	RequestID string    `json:"request_id,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`
	Position  geo.Point `json:"position"`
	Detail    string    `json:"detail,omitempty"`
}

// Query filters entries. Zero fields match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	Kind      Kind
	RequestID string
	AgentID   string
	Limit     int
}

// Match reports whether e satisfies q, ignoring Limit.
func (q Query) Match(e Entry) bool {
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	if q.RequestID != "" && e.RequestID != q.RequestID {
		return false
	}
	if q.AgentID != "" && e.AgentID != q.AgentID {
		return false
	}
	return true
}

func (q Query) truncate(out []Entry) []Entry {
	if q.Limit > 0 && len(out) > q.Limit {
		return out[len(out)-q.Limit:]
	}
	return out
}

// Store persists entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// Config selects and configures the journal backend.
type Config struct {
	// Backend is one of "memory", "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB triggers rotation of the jsonl file.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
	// MemoryLimit caps the in-memory backend.
	MemoryLimit int `json:"memory_limit"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "journal.jsonl"
		case "sqlite":
			c.Path = "journal.db"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 50
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 10000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory", "none":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("journal: path is required for %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("journal: unknown backend %s", c.Backend)
	}
}

// Open builds the store described by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "jsonl":
		return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "none":
		return NopStore{}, nil
	default:
		return NewMemoryStore(cfg.MemoryLimit), nil
	}
}

// NopStore drops every entry.
type NopStore struct{}

func (NopStore) Append(context.Context, Entry) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Entry, error) { return nil, nil }
func (NopStore) Close() error                                  { return nil }

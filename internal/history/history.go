// Package history keeps a local SQLite event log of notable actions:
// profile applies, launches, workflow and task runs. It is informational
// only; nothing correctness-critical reads from it.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Event kinds recorded in the log.
const (
	KindApply    = "apply"
	KindLaunch   = "launch"
	KindWorkflow = "workflow"
	KindTask     = "task"
	KindHook     = "hook"
)

type Event struct {
	ID        int64
	Kind      string
	Name      string
	Detail    string
	CreatedAt time.Time
}

// Log 基于 SQLite (WAL 模式) 的事件日志
// Log is the SQLite-backed event log, opened in WAL mode.
type Log struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at dbPath.
func Open(dbPath string) (*Log, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("history db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	l := &Log{db: db, path: dbPath}
	if err := l.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return l, nil
}

func (l *Log) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		kind       TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		detail     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record appends one event to the log.
func (l *Log) Record(kind, name, detail string) error {
	_, err := l.db.Exec(
		`INSERT INTO events (kind, name, detail, created_at) VALUES (?, ?, ?, ?)`,
		kind, name, detail, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns the newest events first, at most limit of them.
func (l *Log) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(
		`SELECT id, kind, name, detail, created_at FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var created string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ts, perr := time.Parse(time.RFC3339, created); perr == nil {
			e.CreatedAt = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

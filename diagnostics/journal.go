package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// journalWriteTimeout bounds a single insert so a locked database cannot
// stall the poller.
const journalWriteTimeout = 2 * time.Second

// Journal is an append-only SQLite [Sink].
//
// Each message becomes one row in the diagnostics table. Rows are never
// updated or deleted by this package.
type Journal struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// OpenJournal opens (creating if needed) the SQLite database at path.
// Use ":memory:" for a throwaway journal.
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS diagnostics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at TEXT NOT NULL,
			message TEXT NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create diagnostics table: %w", err)
	}

	return &Journal{db: db, now: time.Now, logger: logger}, nil
}

// Record implements [Sink]. Insert failures are logged and dropped.
func (j *Journal) Record(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()

	at := j.now().UTC().Format(time.RFC3339Nano)
	if _, err := j.db.ExecContext(ctx,
		`INSERT INTO diagnostics (recorded_at, message) VALUES (?, ?)`, at, message); err != nil {
		j.logger.Warn("diagnostics journal insert failed", "error", err)
	}
}

// Recent returns up to limit entries, oldest first, from the most recent rows.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT recorded_at, message FROM (
			SELECT id, recorded_at, message FROM diagnostics ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var at, msg string
		if err := rows.Scan(&at, &msg); err != nil {
			return nil, fmt.Errorf("scan diagnostics row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", at, err)
		}
		entries = append(entries, Entry{At: ts, Message: msg})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return entries, nil
}

// Close closes the database. Safe to call on a nil Journal.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// ABOUTME: Ledger implementation over modernc.org/sqlite with schema-on-open.
// ABOUTME: WAL mode; parent directories are created automatically.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one executed action.
type Entry struct {
	ID         string
	SessionID  string
	Round      int
	Action     string
	ParamsJSON string
	Success    bool
	Message    string
	VMID       int
	CreatedAt  time.Time
}

// Ledger records executed actions in SQLite.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the ledger database at path. The schema is created
// on first open; parent directories are created if needed.
func Open(path string) (*Ledger, error) {
	logger := slog.Default().With("component", "store")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	l := &Ledger{db: db, logger: logger}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("action ledger initialized", "path", path)
	return l, nil
}

func (l *Ledger) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			action TEXT NOT NULL,
			params_json TEXT,
			success INTEGER NOT NULL,
			message TEXT,
			vmid INTEGER,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_actions_session
			ON actions(session_id, created_at);

		CREATE INDEX IF NOT EXISTS idx_actions_created
			ON actions(created_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends one entry. ID and CreatedAt are filled when zero.
func (l *Ledger) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO actions (id, session_id, round, action, params_json, success, message, vmid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Round, e.Action, e.ParamsJSON, e.Success, e.Message, e.VMID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording action: %w", err)
	}
	return nil
}

// Session returns a session's entries in execution order.
func (l *Ledger) Session(ctx context.Context, sessionID string) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, session_id, round, action, params_json, success, message, vmid, created_at
		FROM actions WHERE session_id = ? ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Recent returns the newest entries across all sessions, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, session_id, round, action, params_json, success, message, vmid, created_at
		FROM actions ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent actions: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Round, &e.Action, &e.ParamsJSON,
			&e.Success, &e.Message, &e.VMID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

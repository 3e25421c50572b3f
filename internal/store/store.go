// Package store provides the SQLite-backed audit trail: one row per idea
// test attempt and one row per process decision.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

// Store provides access to the audit database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

// SetClock overrides the time source used for PDR timestamps.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		status_code INTEGER,
		class TEXT,
		detail TEXT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		idea_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_idea_id ON attempts(idea_id);
	CREATE INDEX IF NOT EXISTS idx_pdr_idea_id ON pdr(idea_id);
	CREATE INDEX IF NOT EXISTS idx_pdr_action ON pdr(action);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Attempt Operations ---

// RecordAttempt inserts one test cycle. An empty ID is filled in.
func (s *Store) RecordAttempt(rec models.AttemptRecord) (*models.AttemptRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := s.db.Exec(
		`INSERT INTO attempts (id, idea_id, attempt, passed, status_code, class, detail, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.IdeaID, rec.Attempt, rec.Passed, rec.StatusCode, string(rec.Class), rec.Detail, rec.StartedAt.UTC(), rec.EndedAt.UTC(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert attempt")
	}
	return &rec, nil
}

// AttemptsForIdea returns an idea's attempts, oldest first.
func (s *Store) AttemptsForIdea(ideaID string) ([]models.AttemptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, idea_id, attempt, passed, status_code, class, detail, started_at, ended_at FROM attempts WHERE idea_id = ? ORDER BY attempt ASC, started_at ASC`,
		ideaID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query attempts")
	}
	defer rows.Close()

	var out []models.AttemptRecord
	for rows.Next() {
		var rec models.AttemptRecord
		var statusCode sql.NullInt64
		var class, detail sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.IdeaID, &rec.Attempt, &rec.Passed, &statusCode, &class, &detail, &rec.StartedAt, &endedAt); err != nil {
			return nil, errors.Wrap(err, "scan attempt")
		}
		if statusCode.Valid {
			rec.StatusCode = int(statusCode.Int64)
		}
		if class.Valid {
			rec.Class = models.FailureClass(class.String)
		}
		if detail.Valid {
			rec.Detail = detail.String
		}
		if endedAt.Valid {
			rec.EndedAt = endedAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(action, inputsHash, outcome, ideaID, details string) (*models.PDREntry, error) {
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		IdeaID:     ideaID,
		Details:    details,
		Timestamp:  s.now(),
	}

	_, err := s.db.Exec(
		`INSERT INTO pdr (id, action, inputs_hash, outcome, idea_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.IdeaID, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert pdr")
	}
	return pdr, nil
}

// ListPDR returns decision records, newest first, optionally limited to one
// idea. A limit of zero or less returns everything.
func (s *Store) ListPDR(ideaID string, limit int) ([]models.PDREntry, error) {
	query := `SELECT id, action, inputs_hash, outcome, idea_id, details, timestamp FROM pdr`
	var args []interface{}
	if ideaID != "" {
		query += ` WHERE idea_id = ?`
		args = append(args, ideaID)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query pdr")
	}
	defer rows.Close()

	var out []models.PDREntry
	for rows.Next() {
		var e models.PDREntry
		var idea, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &idea, &details, &e.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan pdr")
		}
		if idea.Valid {
			e.IdeaID = idea.String
		}
		if details.Valid {
			e.Details = details.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountPDR counts decision records with the given action.
func (s *Store) CountPDR(action string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pdr WHERE action = ?`, action).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count pdr")
	}
	return n, nil
}

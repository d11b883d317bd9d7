// Package store persists analysis runs to SQLite so compliance can be
// tracked over time. One row per run plus the prioritized action list; the
// in-memory report stays the source of truth for a single run.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pedromsantos/dddlint/internal/catalog"
	"github.com/pedromsantos/dddlint/internal/logging"
	"github.com/pedromsantos/dddlint/internal/report"
)

// Store is the SQLite-backed run history.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// RunRecord summarizes one persisted analysis run.
type RunRecord struct {
	ID        string
	Root      string
	CreatedAt time.Time
	Summary   report.Summary
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.Store("run history open at %s", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id             TEXT PRIMARY KEY,
			root           TEXT NOT NULL,
			created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
			types          INTEGER NOT NULL,
			evaluated      INTEGER NOT NULL,
			passed         INTEGER NOT NULL,
			failed         INTEGER NOT NULL,
			not_applicable INTEGER NOT NULL,
			coverage_gaps  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS actions (
			run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position  INTEGER NOT NULL,
			rule_id   TEXT NOT NULL,
			severity  TEXT NOT NULL,
			type_name TEXT NOT NULL,
			file      TEXT DEFAULT '',
			line      INTEGER DEFAULT 0,
			summary   TEXT DEFAULT '',
			fix       TEXT DEFAULT '',
			evidence  TEXT DEFAULT '[]',
			heuristic INTEGER DEFAULT 0,
			PRIMARY KEY (run_id, position)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`)
	return err
}

// migration adds a column to an existing table. Handles databases created
// before the column existed.
type migration struct {
	Table  string
	Column string
	Def    string
}

var pendingMigrations = []migration{
	// Severity breakdown columns (added for the history trend view)
	{"runs", "failed_critical", "INTEGER DEFAULT 0"},
	{"runs", "failed_high", "INTEGER DEFAULT 0"},
	{"runs", "failed_medium", "INTEGER DEFAULT 0"},
	{"runs", "failed_low", "INTEGER DEFAULT 0"},
}

func (s *Store) runMigrations() error {
	for _, m := range pendingMigrations {
		exists, err := s.columnExists(m.Table, m.Column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		logging.StoreDebug("migrated: added %s.%s", m.Table, m.Column)
	}
	return nil
}

func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// SaveRun persists one completed run and its action list atomically.
func (s *Store) SaveRun(ctx context.Context, id, root string, r *report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryStore, "SaveRun")
	defer timer.Stop()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, root, types, evaluated, passed, failed, not_applicable,
			coverage_gaps, failed_critical, failed_high, failed_medium, failed_low)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, root,
		r.Summary.Types, r.Summary.Evaluated, r.Summary.Passed, r.Summary.Failed,
		r.Summary.NotApplicable, r.Summary.CoverageGaps,
		r.Summary.FailedCritical, r.Summary.FailedHigh, r.Summary.FailedMedium, r.Summary.FailedLow)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, a := range r.Actions {
		evidence, merr := json.Marshal(a.Evidence)
		if merr != nil {
			evidence = []byte("[]")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO actions (run_id, position, rule_id, severity, type_name,
				file, line, summary, fix, evidence, heuristic)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, a.RuleID, string(a.Severity), a.TypeName,
			a.File, a.Line, a.Summary, a.Fix, string(evidence), boolInt(a.Heuristic))
		if err != nil {
			return fmt.Errorf("insert action %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logging.Store("saved run %s: %d actions", id, len(r.Actions))
	return nil
}

// History returns the most recent runs, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, created_at, types, evaluated, passed, failed,
			not_applicable, coverage_gaps, failed_critical, failed_high,
			failed_medium, failed_low
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Root, &rec.CreatedAt,
			&rec.Summary.Types, &rec.Summary.Evaluated, &rec.Summary.Passed,
			&rec.Summary.Failed, &rec.Summary.NotApplicable, &rec.Summary.CoverageGaps,
			&rec.Summary.FailedCritical, &rec.Summary.FailedHigh,
			&rec.Summary.FailedMedium, &rec.Summary.FailedLow); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Actions returns the persisted action list of one run, in stored order.
func (s *Store) Actions(ctx context.Context, runID string) ([]report.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, severity, type_name, file, line, summary, fix, evidence, heuristic
		FROM actions WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.Action
	for rows.Next() {
		var a report.Action
		var severity, evidence string
		var heuristic int
		if err := rows.Scan(&a.RuleID, &severity, &a.TypeName, &a.File, &a.Line,
			&a.Summary, &a.Fix, &evidence, &heuristic); err != nil {
			return nil, err
		}
		a.Severity = catalog.Severity(severity)
		a.Heuristic = heuristic != 0
		if err := json.Unmarshal([]byte(evidence), &a.Evidence); err != nil {
			a.Evidence = nil
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

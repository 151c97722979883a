package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	defaultProjectKey = "default"
)

// Store persists scan runs and their diagnostics in SQLite.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open opens or creates the database at path and migrates it to the
// current schema. busyTimeout bounds how long a write waits on a lock held
// by another process.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}
	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeProjectKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return defaultProjectKey
	}
	return key
}

// SaveRun writes run and its diagnostics in one transaction.
func (s *Store) SaveRun(ctx context.Context, projectKey string, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("save run: run id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ProjectKey = normalizeProjectKey(projectKey)
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (
  id, project_key, started_at_utc, finished_at_utc, file_count, declaration_count,
  reference_count, resolved_count, not_found_count, ambiguous_count, circular_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.ProjectKey,
			run.StartedAt.UTC().Format(timestampLayout),
			run.FinishedAt.UTC().Format(timestampLayout),
			run.FileCount,
			run.DeclarationCount,
			run.ReferenceCount,
			run.ResolvedCount,
			run.NotFoundCount,
			run.AmbiguousCount,
			run.CircularCount,
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO diagnostics (run_id, seq, code, symbol, message, file, line, col, candidates)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, d := range run.Diagnostics {
			candidates, err := json.Marshal(d.Candidates)
			if err != nil {
				return err
			}
			if d.Candidates == nil {
				candidates = []byte("[]")
			}
			if _, err := stmt.ExecContext(ctx, run.ID, i, d.Code, d.Symbol, d.Message, d.File, d.Line, d.Column, string(candidates)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadRuns returns the most recent runs of a project, newest first. A
// limit of zero or less returns every run.
func (s *Store) LoadRuns(ctx context.Context, projectKey string, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT
  id, project_key, started_at_utc, finished_at_utc, file_count, declaration_count,
  reference_count, resolved_count, not_found_count, ambiguous_count, circular_count
FROM runs
WHERE project_key = ?
ORDER BY started_at_utc DESC, id DESC`
	args := []any{normalizeProjectKey(projectKey)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run                  Run
			startedRaw, finished string
		)
		if err := rows.Scan(
			&run.ID,
			&run.ProjectKey,
			&startedRaw,
			&finished,
			&run.FileCount,
			&run.DeclarationCount,
			&run.ReferenceCount,
			&run.ResolvedCount,
			&run.NotFoundCount,
			&run.AmbiguousCount,
			&run.CircularCount,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if run.StartedAt, err = parseTimestamp(startedRaw); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseTimestamp(finished); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LoadDiagnostics returns the diagnostics of one run in the order they
// were saved.
func (s *Store) LoadDiagnostics(ctx context.Context, runID string) ([]Diagnostic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load diagnostics", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT code, symbol, message, file, line, col, candidates
FROM diagnostics
WHERE run_id = ?
ORDER BY seq ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Diagnostic, 0)
	for rows.Next() {
		var (
			d   Diagnostic
			raw string
		)
		if err := rows.Scan(&d.Code, &d.Symbol, &d.Message, &d.File, &d.Line, &d.Column, &raw); err != nil {
			return nil, fmt.Errorf("scan diagnostic row: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &d.Candidates); err != nil {
			return nil, fmt.Errorf("decode candidates of %q: %w", d.Symbol, err)
		}
		if len(d.Candidates) == 0 {
			d.Candidates = nil
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostic rows: %w", err)
	}
	return out, nil
}

// PruneRuns deletes all but the newest keep runs of a project and returns
// how many were removed.
func (s *Store) PruneRuns(ctx context.Context, projectKey string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM runs
WHERE project_key = ?1 AND id NOT IN (
  SELECT id FROM runs WHERE project_key = ?1
  ORDER BY started_at_utc DESC, id DESC LIMIT ?2
)`, normalizeProjectKey(projectKey), keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// timestampLayout keeps every fraction digit so timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

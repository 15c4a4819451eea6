package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; the ledger is an audit log and can simply be deleted on mismatch.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("ledger schema version mismatch")

// Store manages run-history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Outcome is one recorded render result row.
type Outcome struct {
	ObjectID      string
	Result        string
	ErrorDetail   string
	Duration      time.Duration
	ProducedFiles int
}

// Counts are the terminal totals stamped onto a finished run.
type Counts struct {
	Done        int
	Failed      int
	TimedOut    int
	Skipped     int
	Interrupted int
}

// Run is a recorded pipeline run.
type Run struct {
	ID           string
	ManifestPath string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Resume       bool
	RetryFailed  bool
	Selected     int
	Counts       Counts
}

// Open initializes or connects to the ledger database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	dbPath := filepath.Join(dir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginRun inserts a run row and returns its generated ID.
func (s *Store) BeginRun(ctx context.Context, manifestPath string, resume, retryFailed bool, selected int) (string, error) {
	runID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, manifest_path, started_at, resume, retry_failed, selected)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID, manifestPath, now, boolInt(resume), boolInt(retryFailed), selected,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// AppendOutcome records one render outcome for the run.
func (s *Store) AppendOutcome(ctx context.Context, runID string, outcome Outcome) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, object_id, result, error_detail, duration_ms, produced_files, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, outcome.ObjectID, outcome.Result, nullableString(outcome.ErrorDetail),
		outcome.Duration.Milliseconds(), outcome.ProducedFiles, now,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// FinishRun stamps terminal counts and the finish time onto the run.
func (s *Store) FinishRun(ctx context.Context, runID string, counts Counts) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, done = ?, failed = ?, timed_out = ?, skipped = ?, interrupted = ?
         WHERE id = ?`,
		now, counts.Done, counts.Failed, counts.TimedOut, counts.Skipped, counts.Interrupted, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// RecentRuns returns the newest runs first, up to limit.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, manifest_path, started_at, finished_at, resume, retry_failed,
                selected, done, failed, timed_out, skipped, interrupted
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                 Run
			started             string
			finished            sql.NullString
			resume, retryFailed int
		)
		if err := rows.Scan(&run.ID, &run.ManifestPath, &started, &finished,
			&resume, &retryFailed, &run.Selected,
			&run.Counts.Done, &run.Counts.Failed, &run.Counts.TimedOut,
			&run.Counts.Skipped, &run.Counts.Interrupted); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Resume = resume != 0
		run.RetryFailed = retryFailed != 0
		if ts, err := time.Parse(time.RFC3339Nano, started); err == nil {
			run.StartedAt = ts
		}
		if finished.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, finished.String); err == nil {
				run.FinishedAt = &ts
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// OutcomesForRun returns the outcomes recorded for one run, oldest first.
func (s *Store) OutcomesForRun(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT object_id, result, error_detail, duration_ms, produced_files
         FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			outcome    Outcome
			detail     sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&outcome.ObjectID, &outcome.Result, &detail, &durationMS, &outcome.ProducedFiles); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcome.ErrorDetail = detail.String
		outcome.Duration = time.Duration(durationMS) * time.Millisecond
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

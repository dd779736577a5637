// Package catalog records completed scan runs in a SQLite database so
// downstream tooling can locate artifacts without re-deriving names.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one completed pipeline run.
type Run struct {
	RunID       string
	Root        string
	Artifact    string
	RowCount    int64
	Checkpoints int
	StartedAt   time.Time
	Duration    time.Duration
}

// Catalog stores run history.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) a catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("catalog: opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			root        TEXT NOT NULL,
			artifact    TEXT NOT NULL,
			row_count   INTEGER NOT NULL,
			checkpoints INTEGER NOT NULL,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root, started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: creating schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// RecordRun inserts a run. A missing RunID is filled with a fresh UUID;
// the stored ID is returned.
func (c *Catalog) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, root, artifact, row_count, checkpoints, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Root, run.Artifact, run.RowCount, run.Checkpoints,
		run.StartedAt.UnixMilli(), run.Duration.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("catalog: recording run: %w", err)
	}
	return run.RunID, nil
}

// GetRun retrieves one run by ID.
func (c *Catalog) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT run_id, root, artifact, row_count, checkpoints, started_at, duration_ms
		 FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("catalog: no run %q", runID)
	}
	return run, err
}

// ListRuns returns runs for a root (all roots if empty), newest first.
func (c *Catalog) ListRuns(ctx context.Context, root string) ([]Run, error) {
	query := `SELECT run_id, root, artifact, row_count, checkpoints, started_at, duration_ms
	          FROM runs`
	var args []interface{}
	if root != "" {
		query += ` WHERE root = ?`
		args = append(args, root)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (*Run, error) {
	var run Run
	var startedMs, durationMs int64
	if err := s.Scan(&run.RunID, &run.Root, &run.Artifact, &run.RowCount,
		&run.Checkpoints, &startedMs, &durationMs); err != nil {
		return nil, err
	}
	run.StartedAt = time.UnixMilli(startedMs)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

// Package ledger records crawl runs and the artifacts they produced in a
// SQLite database.
package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"chunkmap/internal/errors"
	"chunkmap/internal/slogutil"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Artifact kinds.
const (
	KindScript    = "script"
	KindChunk     = "chunk"
	KindSourceMap = "sourcemap"
	KindSource    = "source"
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one crawl of one target.
type Run struct {
	ID         string     `json:"id" yaml:"id" toml:"id"`
	Target     string     `json:"target" yaml:"target" toml:"target"`
	Status     string     `json:"status" yaml:"status" toml:"status"`
	StartedAt  time.Time  `json:"startedAt" yaml:"startedAt" toml:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty" toml:"finishedAt,omitempty"`
	Scripts    int        `json:"scripts" yaml:"scripts" toml:"scripts"`
	Chunks     int        `json:"chunks" yaml:"chunks" toml:"chunks"`
	SourceMaps int        `json:"sourceMaps" yaml:"sourceMaps" toml:"sourceMaps"`
	Sources    int        `json:"sources" yaml:"sources" toml:"sources"`
	Failures   int        `json:"failures" yaml:"failures" toml:"failures"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

// Counts are the totals stored when a run finishes.
type Counts struct {
	Scripts    int
	Chunks     int
	SourceMaps int
	Sources    int
	Failures   int
}

// Artifact is one file a run saved.
type Artifact struct {
	RunID  string `json:"runId" yaml:"runId" toml:"runId"`
	URL    string `json:"url" yaml:"url" toml:"url"`
	Kind   string `json:"kind" yaml:"kind" toml:"kind"`
	Path   string `json:"path" yaml:"path" toml:"path"`
	Digest string `json:"digest" yaml:"digest" toml:"digest"`
	Shape  string `json:"shape,omitempty" yaml:"shape,omitempty" toml:"shape,omitempty"`
}

// Ledger is a handle on the ledger database.
type Ledger struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the ledger database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "failed to create ledger directory", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "failed to open ledger", err)
	}

	// Pragmas are per connection.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(errors.StoreFailed, "failed to set pragma", err)
		}
	}

	l := &Ledger{conn: conn, logger: logger, dbPath: dbPath}
	if err := l.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(errors.StoreFailed, "failed to initialize ledger schema", err)
	}

	logger.Debug("Opened ledger", "path", dbPath)
	return l, nil
}

func (l *Ledger) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			scripts INTEGER NOT NULL DEFAULT 0,
			chunks INTEGER NOT NULL DEFAULT 0,
			source_maps INTEGER NOT NULL DEFAULT 0,
			sources INTEGER NOT NULL DEFAULT 0,
			failures INTEGER NOT NULL DEFAULT 0,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			kind TEXT NOT NULL,
			path TEXT,
			digest TEXT,
			shape TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := l.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// StartRun inserts a running run for target and returns it.
func (l *Ledger) StartRun(target string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Target:    target,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := l.conn.Exec(
		`INSERT INTO runs (id, target, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Target, run.Status, run.StartedAt.Format(timeFormat),
	)
	if err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "failed to record run", err)
	}
	return run, nil
}

// RecordArtifact appends an artifact to a run.
func (l *Ledger) RecordArtifact(a Artifact) error {
	_, err := l.conn.Exec(
		`INSERT INTO artifacts (run_id, url, kind, path, digest, shape) VALUES (?, ?, ?, ?, ?, ?)`,
		a.RunID, a.URL, a.Kind, nullString(a.Path), nullString(a.Digest), nullString(a.Shape),
	)
	if err != nil {
		return errors.Wrap(errors.StoreFailed, "failed to record artifact", err)
	}
	return nil
}

// FinishRun stores the final status and counts. A non-nil runErr is kept as
// the run's error text.
func (l *Ledger) FinishRun(id, status string, counts Counts, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := l.conn.Exec(`
		UPDATE runs SET status = ?, finished_at = ?, scripts = ?, chunks = ?,
			source_maps = ?, sources = ?, failures = ?, error = ?
		WHERE id = ?`,
		status, time.Now().UTC().Format(timeFormat),
		counts.Scripts, counts.Chunks, counts.SourceMaps, counts.Sources, counts.Failures,
		errText, id,
	)
	if err != nil {
		return errors.Wrap(errors.StoreFailed, "failed to finish run", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.StoreFailed, fmt.Sprintf("run %s not found", id))
	}
	return nil
}

const runColumns = `id, target, status, started_at, finished_at, scripts, chunks,
	source_maps, sources, failures, error`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r         Run
		started   string
		finished  sql.NullString
		errorText sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Target, &r.Status, &started, &finished,
		&r.Scripts, &r.Chunks, &r.SourceMaps, &r.Sources, &r.Failures, &errorText); err != nil {
		return Run{}, err
	}
	r.StartedAt, _ = time.Parse(timeFormat, started)
	if finished.Valid {
		t, _ := time.Parse(timeFormat, finished.String)
		r.FinishedAt = &t
	}
	r.Error = errorText.String
	return r, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (l *Ledger) Runs(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.conn.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "failed to list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(errors.StoreFailed, "failed to scan run", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run. An unknown id is a NOT_FOUND error.
func (l *Ledger) GetRun(id string) (*Run, error) {
	r, err := scanRun(l.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.NotFound, fmt.Sprintf("run %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "failed to load run", err)
	}
	return &r, nil
}

// Artifacts returns the artifacts recorded for a run in insertion order.
func (l *Ledger) Artifacts(runID string) ([]Artifact, error) {
	rows, err := l.conn.Query(
		`SELECT run_id, url, kind, path, digest, shape FROM artifacts WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "failed to list artifacts", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a                   Artifact
			path, digest, shape sql.NullString
		)
		if err := rows.Scan(&a.RunID, &a.URL, &a.Kind, &path, &digest, &shape); err != nil {
			return nil, errors.Wrap(errors.StoreFailed, "failed to scan artifact", err)
		}
		a.Path, a.Digest, a.Shape = path.String, digest.String, shape.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

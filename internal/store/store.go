// Package store archives scoring runs in SQLite. Each run records the
// detector configuration and summary statistics; edges that scored at or
// above the configured threshold are kept individually so past incidents
// can be queried without re-scoring.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"midas/internal/logging"
	"midas/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	input       TEXT NOT NULL,
	variant     TEXT NOT NULL,
	rows        INTEGER NOT NULL,
	buckets     INTEGER NOT NULL,
	alpha       REAL NOT NULL,
	edges       INTEGER NOT NULL,
	max_score   REAL NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS anomalies (
	run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	line    INTEGER NOT NULL,
	source  INTEGER NOT NULL,
	dest    INTEGER NOT NULL,
	tick    INTEGER NOT NULL,
	score   REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id);
CREATE INDEX IF NOT EXISTS idx_anomalies_score ON anomalies(score DESC);
`

// Run is one archived scoring run.
type Run struct {
	ID         string
	Input      string
	Variant    string
	Rows       uint64
	Buckets    uint64
	Alpha      float64
	Edges      int64
	MaxScore   float64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is the SQLite-backed run archive.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open initializes the archive database at path, creating the schema and
// parent directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Get(logging.CategoryStore).Debugw("pragma failed", "pragma", pragma, "error", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	logging.Get(logging.CategoryStore).Debugw("archive opened", "path", path)
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun archives a run and its anomalies in one transaction.
func (s *Store) RecordRun(run Run, anomalies []pipeline.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, input, variant, rows, buckets, alpha, edges, max_score, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input, run.Variant, int64(run.Rows), int64(run.Buckets),
		run.Alpha, run.Edges, run.MaxScore, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO anomalies (run_id, line, source, dest, tick, score) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare anomaly insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range anomalies {
		if _, err := stmt.Exec(run.ID, a.Line, int64(a.Source), int64(a.Dest), int64(a.Tick), a.Score); err != nil {
			return fmt.Errorf("store: insert anomaly (line %d): %w", a.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}

	logging.Get(logging.CategoryStore).Infow("run archived",
		"run", run.ID, "edges", run.Edges, "anomalies", len(anomalies))
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, input, variant, rows, buckets, alpha, edges, max_score, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var sketchRows, buckets int64
		if err := rows.Scan(&r.ID, &r.Input, &r.Variant, &sketchRows, &buckets,
			&r.Alpha, &r.Edges, &r.MaxScore, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.Rows = uint64(sketchRows)
		r.Buckets = uint64(buckets)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// TopAnomalies returns the highest-scoring archived anomalies for a run.
// An empty runID searches across all runs.
func (s *Store) TopAnomalies(runID string, limit int) ([]pipeline.Anomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT line, source, dest, tick, score FROM anomalies`
	args := []interface{}{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY score DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []pipeline.Anomaly
	for rows.Next() {
		var a pipeline.Anomaly
		var source, dest, tick int64
		if err := rows.Scan(&a.Line, &source, &dest, &tick, &a.Score); err != nil {
			return nil, fmt.Errorf("store: scan anomaly: %w", err)
		}
		a.Source = uint64(source)
		a.Dest = uint64(dest)
		a.Tick = uint64(tick)
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

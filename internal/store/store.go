// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists completed analysis jobs and their result records
// so past runs can be listed and re-exported without re-analysis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/CarbonMon/CLARA/pkg/types"
)

const dbFile = "clara.db"

// Job is one persisted analysis run.
type Job struct {
	ID          string
	Query       string
	Source      string
	CreatedAt   time.Time
	ResultCount int
}

// Store manages the job history SQLite database.
type Store struct {
	db      *sql.DB
	dataDir string
}

// NewStore opens or creates the job database at dataDir/clara.db,
// creating the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dataDir: cfg.DataDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			query TEXT,
			source TEXT,
			created_at TEXT NOT NULL,
			result_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL REFERENCES jobs(id),
			position INTEGER NOT NULL,
			title TEXT,
			pmid TEXT,
			analysis_source TEXT,
			error TEXT,
			record TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_job_id ON results(job_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// NewJobID returns a timestamp-based identifier for a new job.
func NewJobID(now time.Time) string {
	return "job-" + now.UTC().Format("20060102-150405")
}

// SaveJob writes a job row and its result records in one transaction.
// Records keep their position so reads come back in processing order.
func (s *Store) SaveJob(ctx context.Context, job Job, records []*types.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (id, query, source, created_at, result_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			query=excluded.query, source=excluded.source,
			created_at=excluded.created_at, result_count=excluded.result_count`,
		job.ID, job.Query, job.Source,
		job.CreatedAt.UTC().Format(time.RFC3339Nano), len(records),
	)
	if err != nil {
		return fmt.Errorf("upserting job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE job_id = ?`, job.ID); err != nil {
		return fmt.Errorf("clearing old results: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (job_id, position, title, pmid, analysis_source, error, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record %d: %w", i, err)
		}
		_, err = stmt.ExecContext(ctx,
			job.ID, i, rec.Title, rec.PMID, rec.AnalysisSource, rec.Error, string(recordJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListJobs returns all saved jobs, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, source, created_at, result_count
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var createdAt string
		if err := rows.Scan(&j.ID, &j.Query, &j.Source, &createdAt, &j.ResultCount); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			j.CreatedAt = t
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// JobResults returns the records of one job in processing order.
func (s *Store) JobResults(ctx context.Context, jobID string) ([]*types.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM results WHERE job_id = ? ORDER BY position`, jobID)
	if err != nil {
		return nil, fmt.Errorf("reading results for %s: %w", jobID, err)
	}
	defer rows.Close()

	var records []*types.Record
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		var rec types.Record
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("parsing stored record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// LatestJobID returns the ID of the most recent job, or sql.ErrNoRows
// when the store is empty.
func (s *Store) LatestJobID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM jobs ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	return id, err
}

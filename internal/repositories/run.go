// Package repositories implements SQLite persistence for run history.
//
// A run row is created before any track is processed and every result is
// saved the moment it is final, so an aborted run can be inspected and its
// finished portion recovered.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mcunha/tunelink/internal/shared"
	"github.com/mcunha/tunelink/internal/tasks"
)

// Run is one recorded resolution run.
type Run struct {
	ID          string
	InputFile   string
	TotalTracks int
	Stats       tasks.RunStats
	Status      string
	CreatedAt   time.Time
	FinishedAt  sql.NullTime
}

const (
	RunStatusRunning  = "running"
	RunStatusFinished = "finished"
)

// RunRepository persists runs and their per-track results.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Init creates the runs and run_results tables if they do not exist.
func (r *RunRepository) Init() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input_file TEXT NOT NULL,
			total_tracks INTEGER NOT NULL,
			youtube_found INTEGER NOT NULL DEFAULT 0,
			fourshared_found INTEGER NOT NULL DEFAULT 0,
			not_found INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running',
			created_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			run_id TEXT NOT NULL REFERENCES runs(id),
			track_index INTEGER NOT NULL,
			track TEXT NOT NULL,
			artist TEXT NOT NULL,
			youtube_url TEXT,
			fourshared_url TEXT,
			status TEXT NOT NULL,
			PRIMARY KEY (run_id, track_index)
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create run tables: %w", err)
		}
	}

	return nil
}

// CreateRun inserts a new run row in the running state and returns its ID.
func (r *RunRepository) CreateRun(inputFile string, totalTracks int) (string, error) {
	id := shared.GenerateID()

	query := `
		INSERT INTO runs (id, input_file, total_tracks, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, id, inputFile, totalTracks, RunStatusRunning, time.Now()); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	return id, nil
}

// SaveResult upserts one track result for the run.
func (r *RunRepository) SaveResult(runID string, res tasks.SearchResult) error {
	query := `
		INSERT OR REPLACE INTO run_results (
			run_id, track_index, track, artist, youtube_url, fourshared_url, status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		runID,
		res.Index,
		res.Track,
		res.Artist,
		res.YouTubeURL,
		res.FourSharedURL,
		string(res.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

// FinishRun stores the final counters and marks the run finished.
func (r *RunRepository) FinishRun(runID string, stats tasks.RunStats) error {
	query := `
		UPDATE runs
		SET youtube_found = ?, fourshared_found = ?, not_found = ?, errors = ?,
			status = ?, finished_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		stats.YouTubeFound,
		stats.FourSharedFound,
		stats.NotFound,
		stats.Errors,
		RunStatusFinished,
		time.Now(),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check run update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, runID)
	}

	return nil
}

// GetRun retrieves a single run by ID.
func (r *RunRepository) GetRun(id string) (*Run, error) {
	query := `
		SELECT id, input_file, total_tracks, youtube_found, fourshared_found,
			not_found, errors, status, created_at, finished_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	return run, nil
}

// ListRuns returns every recorded run, newest first.
func (r *RunRepository) ListRuns() ([]Run, error) {
	query := `
		SELECT id, input_file, total_tracks, youtube_found, fourshared_found,
			not_found, errors, status, created_at, finished_at
		FROM runs
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// GetResults returns the run's saved results ordered by track index. A run
// that was aborted mid-way returns only the results saved before the abort.
func (r *RunRepository) GetResults(runID string) ([]tasks.SearchResult, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}

	query := `
		SELECT track_index, track, artist, youtube_url, fourshared_url, status
		FROM run_results
		WHERE run_id = ?
		ORDER BY track_index
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	var results []tasks.SearchResult
	for rows.Next() {
		var res tasks.SearchResult
		var youtube, fourshared sql.NullString
		var status string
		if err := rows.Scan(&res.Index, &res.Track, &res.Artist, &youtube, &fourshared, &status); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.YouTubeURL = youtube.String
		res.FourSharedURL = fourshared.String
		res.Status = tasks.Status(status)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}

	return results, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	err := s.Scan(
		&run.ID,
		&run.InputFile,
		&run.TotalTracks,
		&run.Stats.YouTubeFound,
		&run.Stats.FourSharedFound,
		&run.Stats.NotFound,
		&run.Stats.Errors,
		&run.Status,
		&run.CreatedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Stats.TotalSongs = run.Stats.YouTubeFound + run.Stats.FourSharedFound +
		run.Stats.NotFound + run.Stats.Errors
	return &run, nil
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
)

const jobColumns = `
	id, movie_id, title, source_path, stage,
	error_kind, error_message, scene_count, created_at, updated_at
`

func (db *DB) CreateJob(ctx context.Context, job *models.MovieJob) error {
	query := `
		INSERT INTO movie_jobs (
			id, movie_id, title, source_path, stage
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.MovieID, job.Title, job.SourcePath, job.Stage,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func scanJob(row interface{ Scan(...interface{}) error }) (*models.MovieJob, error) {
	job := &models.MovieJob{}
	err := row.Scan(
		&job.ID, &job.MovieID, &job.Title, &job.SourcePath, &job.Stage,
		&job.ErrorKind, &job.ErrorMessage, &job.SceneCount,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*models.MovieJob, error) {
	query := `SELECT ` + jobColumns + ` FROM movie_jobs WHERE id = $1`

	job, err := scanJob(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// GetJobByMovieID looks a job up by its movie identifier. Returns
// (nil, nil) when no job exists for the movie.
func (db *DB) GetJobByMovieID(ctx context.Context, movieID string) (*models.MovieJob, error) {
	query := `SELECT ` + jobColumns + ` FROM movie_jobs WHERE movie_id = $1`

	job, err := scanJob(db.QueryRowContext(ctx, query, movieID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job by movie id: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs ordered by creation date (newest first).
// Supports optional stage filter, limit, and offset for pagination.
func (db *DB) ListJobs(ctx context.Context, stage string, limit, offset int) ([]models.MovieJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + jobColumns + ` FROM movie_jobs`
	args := []interface{}{}
	if stage != "" {
		query += ` WHERE stage = $1`
		args = append(args, stage)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.MovieJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, rows.Err()
}

// AdvanceStage atomically records the completion of a stage. The batch
// controller is the only caller; a single UPDATE keeps the on-disk record
// consistent with whatever a restarted process will observe.
func (db *DB) AdvanceStage(ctx context.Context, id uuid.UUID, stage models.Stage) error {
	query := `UPDATE movie_jobs SET stage = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, stage, time.Now(), id)
	return err
}

func (db *DB) UpdateSceneCount(ctx context.Context, id uuid.UUID, count int) error {
	query := `UPDATE movie_jobs SET scene_count = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, count, time.Now(), id)
	return err
}

// MarkFailed persists the terminal failure with its kind for operator
// inspection. Failed jobs are never retried automatically.
func (db *DB) MarkFailed(ctx context.Context, id uuid.UUID, kind models.ErrorKind, message string) error {
	query := `
		UPDATE movie_jobs
		SET stage = $1, error_kind = $2, error_message = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := db.ExecContext(ctx, query, models.StageFailed, kind, message, time.Now(), id)
	return err
}

// ResetForRetry puts a failed job back at the start of the pipeline.
// Operator-initiated only.
func (db *DB) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE movie_jobs
		SET stage = $1, error_kind = NULL, error_message = NULL, updated_at = $2
		WHERE id = $3 AND stage = $4
	`
	res, err := db.ExecContext(ctx, query, models.StagePlanned, time.Now(), id, models.StageFailed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job is not in failed state")
	}
	return nil
}

// ListResumable returns jobs that were mid-pipeline when the process last
// stopped. Used at startup to re-enqueue interrupted work.
func (db *DB) ListResumable(ctx context.Context) ([]models.MovieJob, error) {
	query := `SELECT ` + jobColumns + ` FROM movie_jobs WHERE stage NOT IN ($1, $2) ORDER BY created_at`

	rows, err := db.QueryContext(ctx, query, models.StageDone, models.StageFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to query resumable jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.MovieJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, rows.Err()
}

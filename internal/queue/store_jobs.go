package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateSource is returned when a source is already waiting in the queue.
var ErrDuplicateSource = errors.New("source already queued")

// NewJob enqueues sourcePath (expected to be absolute) as a pending job.
// A source that already has a pending or in-flight job is rejected.
func (s *Store) NewJob(ctx context.Context, sourcePath string) (*Job, error) {
	existing, err := s.FindActiveBySource(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s (job %d)", ErrDuplicateSource, sourcePath, existing.ID)
	}

	timestamp := timestampNow()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (source_path, status, progress, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		sourcePath,
		StatusPending,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindActiveBySource returns the pending or in-flight job for sourcePath, if any.
func (s *Store) FindActiveBySource(ctx context.Context, sourcePath string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE source_path = ? AND status IN (?, ?, ?) ORDER BY id LIMIT 1`,
		sourcePath, StatusPending, StatusExtracting, StatusRecognizing,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided) in submission order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return scanJobs(rows)
}

// Pending returns pending jobs in submission order.
func (s *Store) Pending(ctx context.Context) ([]*Job, error) {
	return s.List(ctx, StatusPending)
}

// Update persists every mutable field of job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET source_path = ?, output_path = ?, status = ?, progress = ?,
             error_message = ?, error_kind = ?, updated_at = ?
         WHERE id = ?`,
		job.SourcePath,
		nullableString(job.OutputPath),
		job.Status,
		job.Progress,
		nullableString(job.ErrorMessage),
		nullableString(job.ErrorKind),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// SetOutputPath records the transcript location planned for a job.
func (s *Store) SetOutputPath(ctx context.Context, id int64, outputPath string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET output_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(outputPath), timestampNow(), id,
	); err != nil {
		return fmt.Errorf("set output path: %w", err)
	}
	return nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes every job that is not currently being processed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status NOT IN (?, ?)`, StatusExtracting, StatusRecognizing)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

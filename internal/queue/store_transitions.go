package queue

import (
	"context"
	"fmt"
	"math"
)

// ApplyUpdate persists a status/progress change. Updates that would move a
// job backwards in its lifecycle (or out of a terminal status) are ignored,
// so a stale coalesced update can never undo a newer one. It reports whether
// the row changed.
func (s *Store) ApplyUpdate(ctx context.Context, update JobUpdate) (bool, error) {
	if _, ok := ParseStatus(string(update.Status)); !ok {
		return false, fmt.Errorf("apply update: unknown status %q", update.Status)
	}
	allowed := predecessors(update.Status)
	args := []any{
		update.Status,
		math.Min(math.Max(update.Progress, 0), 1),
		nullableString(update.ErrorMessage),
		nullableString(update.ErrorKind),
		timestampNow(),
		update.ID,
	}
	args = append(args, statusArgs(allowed)...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = MAX(progress, ?), error_message = ?, error_kind = ?, updated_at = ?
         WHERE id = ? AND status IN (`+makePlaceholders(len(allowed))+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("apply update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RetryFailed moves failed and cancelled jobs back to pending. With ids, only
// those jobs are considered. It returns the number of jobs re-queued.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE jobs
         SET status = ?, progress = 0, error_message = NULL, error_kind = NULL, updated_at = ?
         WHERE status IN (?, ?)`
	args := []any{StatusPending, timestampNow(), StatusFailed, StatusCancelled}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed: %w", err)
	}
	return res.RowsAffected()
}

// ResetInterrupted returns jobs left mid-flight by a crashed run to pending.
// Callers must hold the run lock so no live worker owns those jobs.
func (s *Store) ResetInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = 0, error_message = NULL, error_kind = NULL, updated_at = ?
         WHERE status IN (?, ?)`,
		StatusPending, timestampNow(), StatusExtracting, StatusRecognizing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset interrupted: %w", err)
	}
	return res.RowsAffected()
}

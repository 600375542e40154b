package queue

import (
	"context"
	"fmt"
)

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job counts for status output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch {
		case status == StatusPending:
			health.Pending += count
		case status.IsProcessing():
			health.Processing += count
		case status == StatusCompleted:
			health.Completed += count
		case status == StatusFailed:
			health.Failed += count
		case status == StatusCancelled:
			health.Cancelled += count
		}
	}
	return health, nil
}

// Ping verifies the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping job database: %w", err)
	}
	return nil
}

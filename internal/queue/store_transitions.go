package queue

import (
	"context"
	"fmt"
	"time"
)

func processingStatusArgs() []any {
	args := make([]any, 0, len(processingStatuses))
	for _, status := range AllStatuses() {
		if _, ok := processingStatuses[status]; ok {
			args = append(args, status)
		}
	}
	return args
}

// ResetStuckProcessing returns jobs left mid-pipeline back to the queue.
// Stages skip work whose outputs already exist, so a restarted job resumes
// from roughly where it stopped.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	statuses := processingStatusArgs()
	args := make([]any, 0, len(statuses)+2)
	args = append(args, StatusQueued, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, statuses...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(statuses))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing requeues processing jobs whose heartbeats expired
// before the cutoff, typically after a worker crash.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	statuses := processingStatusArgs()
	args := make([]any, 0, len(statuses)+3)
	args = append(args, StatusQueued, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, statuses...)
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+makePlaceholders(len(statuses))+`) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to queued for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusQueued,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusQueued, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE jobs
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

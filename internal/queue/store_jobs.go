package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewJob inserts a queued job for a VOD awaiting processing.
func (s *Store) NewJob(ctx context.Context, vodID, sourceURL, userID, settingsJSON string) (*Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            vod_id, source_url, user_id, status, created_at, updated_at,
            progress_stage, progress_percent, progress_message, settings_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(vodID),
		nullableString(sourceURL),
		nullableString(userID),
		StatusQueued,
		timestamp,
		timestamp,
		nil,
		0.0,
		nil,
		nullableString(settingsJSON),
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

// GetByID fetches a job by identifier.
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

// FindByVOD returns the most recent job for a VOD identifier.
func (s *Store) FindByVOD(ctx context.Context, vodID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE vod_id = ? ORDER BY id DESC LIMIT 1`,
		vodID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by vod: %w", err)
	}
	return job, nil
}

// FindActiveByVOD returns the oldest live (neither completed nor failed) job
// for a VOD identifier. Used to deduplicate submissions.
func (s *Store) FindActiveByVOD(ctx context.Context, vodID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE vod_id = ? AND status NOT IN (?, ?) ORDER BY id LIMIT 1`,
		vodID,
		StatusCompleted,
		StatusFailed,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active by vod: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET vod_id = ?, source_url = ?, user_id = ?, title = ?, status = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             error_message = ?, video_path = ?, audio_path = ?, moments_json = ?,
             clips_json = ?, settings_json = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		job.VODID,
		job.SourceURL,
		nullableString(job.UserID),
		nullableString(job.Title),
		job.Status,
		nullableString(job.ProgressStage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		nullableString(job.ErrorMessage),
		nullableString(job.VideoPath),
		nullableString(job.AudioPath),
		nullableString(job.MomentsJSON),
		nullableString(job.ClipsJSON),
		nullableString(job.SettingsJSON),
		nullableTime(job.LastHeartbeat),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdateProgress persists only the progress fields for an in-flight job.
func (s *Store) UpdateProgress(ctx context.Context, id int64, status Status, stage, message string, percent float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		status,
		nullableString(stage),
		percent,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// JobsByStatus returns jobs matching a status ordered by creation time.
func (s *Store) JobsByStatus(ctx context.Context, status Status) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextForStatuses returns the oldest job matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
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

// ClearCompleted removes only completed jobs from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

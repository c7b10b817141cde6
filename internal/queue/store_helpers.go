package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, vod_id, source_url, user_id, title, status, progress_stage, progress_percent, progress_message, error_message, video_path, audio_path, moments_json, clips_json, settings_json, last_heartbeat, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		vodID            string
		sourceURL        string
		userID           sql.NullString
		title            sql.NullString
		statusStr        string
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		errorMessage     sql.NullString
		videoPath        sql.NullString
		audioPath        sql.NullString
		momentsJSON      sql.NullString
		clipsJSON        sql.NullString
		settingsJSON     sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&vodID,
		&sourceURL,
		&userID,
		&title,
		&statusStr,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&errorMessage,
		&videoPath,
		&audioPath,
		&momentsJSON,
		&clipsJSON,
		&settingsJSON,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		VODID:           vodID,
		SourceURL:       sourceURL,
		UserID:          userID.String,
		Title:           title.String,
		Status:          Status(statusStr),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ErrorMessage:    errorMessage.String,
		VideoPath:       videoPath.String,
		AudioPath:       audioPath.String,
		MomentsJSON:     momentsJSON.String,
		ClipsJSON:       clipsJSON.String,
		SettingsJSON:    settingsJSON.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

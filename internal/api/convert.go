package api

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"clipforge/internal/daemon"
	"clipforge/internal/deps"
	"clipforge/internal/queue"
	"clipforge/internal/workflow"
)

// FromJob converts a queue record into its transport representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:        job.ID,
		VODID:     job.VODID,
		SourceURL: job.SourceURL,
		UserID:    job.UserID,
		Title:     job.Title,
		Status:    string(job.Status),
		Progress: JobProgress{
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		ErrorMessage: job.ErrorMessage,
		VideoPath:    job.VideoPath,
		AudioPath:    job.AudioPath,
		Moments:      rawJSON(job.MomentsJSON),
		Clips:        rawJSON(job.ClipsJSON),
		Settings:     rawJSON(job.SettingsJSON),
		CreatedAt:    FormatTime(job.CreatedAt),
		UpdatedAt:    FormatTime(job.UpdatedAt),
	}
}

// FromJobs converts a job slice, preserving order.
func FromJobs(jobs []*queue.Job) []Job {
	converted := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		converted = append(converted, FromJob(job))
	}
	return converted
}

// FromStatusSummary converts workflow status for transport.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:    summary.Running,
		LastError:  summary.LastError,
		QueueStats: MergeQueueStats(summary.QueueStats),
		StageNames: summary.StageNames,
	}
	if summary.LastJob != nil {
		job := FromJob(summary.LastJob)
		status.LastJob = &job
	}
	return status
}

// FromDaemonStatus converts the daemon snapshot for transport.
func FromDaemonStatus(status daemon.Status) DaemonStatus {
	return DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     FromStatusSummary(status.Workflow),
		Dependencies: FromDependencies(status.Dependencies),
	}
}

// FromDependencies converts dependency probes for transport.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	converted := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		converted = append(converted, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return converted
}

// FromDatabaseHealth converts the database integrity report for transport.
func FromDatabaseHealth(health queue.DatabaseHealth) DatabaseHealthResponse {
	return DatabaseHealthResponse{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		SchemaVersion:    health.SchemaVersion,
		TableExists:      health.TableExists,
		ColumnsPresent:   health.ColumnsPresent,
		MissingColumns:   health.MissingColumns,
		IntegrityCheck:   health.IntegrityCheck,
		TotalJobs:        health.TotalJobs,
		Error:            health.Error,
	}
}

// MergeQueueStats flattens typed queue counters into string keys.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(stats))
	for status, count := range stats {
		merged[string(status)] = count
	}
	return merged
}

// SortJobsNewestFirst orders jobs by creation time descending, falling back to
// id so rows created in the same instant keep a stable order.
func SortJobsNewestFirst(jobs []Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		left, leftOK := ParseTime(jobs[i].CreatedAt)
		right, rightOK := ParseTime(jobs[j].CreatedAt)
		if leftOK && rightOK && !left.Equal(right) {
			return left.After(right)
		}
		return jobs[i].ID > jobs[j].ID
	})
}

// FormatTime renders a timestamp for transport. Zero times become "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeFormat)
}

// ParseTime parses a transport timestamp, tolerating the RFC 3339 variants
// older clients may send.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{dateTimeFormat, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func rawJSON(value string) json.RawMessage {
	value = strings.TrimSpace(value)
	if value == "" || !json.Valid([]byte(value)) {
		return nil
	}
	return json.RawMessage(value)
}

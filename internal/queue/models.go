package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusAnalyzing   Status = "analyzing"
	StatusExtracting  Status = "extracting"
	StatusReframing   Status = "reframing"
	StatusCaptioning  Status = "captioning"
	StatusUploading   Status = "uploading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusQueued,
	StatusDownloading,
	StatusAnalyzing,
	StatusExtracting,
	StatusReframing,
	StatusCaptioning,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading: {},
	StatusAnalyzing:   {},
	StatusExtracting:  {},
	StatusReframing:   {},
	StatusCaptioning:  {},
	StatusUploading:   {},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Failed     int
	Completed  int
}

// Job represents a clip-generation job persisted in SQLite.
type Job struct {
	ID              int64
	VODID           string
	SourceURL       string
	UserID          string
	Title           string
	Status          Status
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	VideoPath       string
	AudioPath       string
	MomentsJSON     string
	ClipsJSON       string
	SettingsJSON    string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight pipeline run.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsTerminal reports whether the job reached a final state.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// IsProcessingStatus reports whether a status reflects an in-flight pipeline run.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// InitProgress resets progress fields for a fresh pipeline run.
// ProgressMessage is set to message, ProgressPercent is reset to 0,
// and ErrorMessage is cleared.
func (j *Job) InitProgress(stage, message string) {
	if j.ProgressStage == "" {
		j.ProgressStage = stage
	}
	j.ProgressMessage = message
	j.ProgressPercent = 0
	j.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
// Use this instead of setting ProgressStage, ProgressPercent, and ProgressMessage individually.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (j *Job) SetProgressComplete(stage, message string) {
	j.SetProgress(stage, message, 100)
}

// SetFailed marks the job as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "Failed"
}

// DisplayTitle returns the job title or a VOD-derived placeholder.
func (j Job) DisplayTitle() string {
	if title := strings.TrimSpace(j.Title); title != "" {
		return title
	}
	if vodID := strings.TrimSpace(j.VODID); vodID != "" {
		return "VOD " + vodID
	}
	return "Untitled job"
}

package api

import "encoding/json"

// dateTimeFormat renders timestamps with millisecond precision and an explicit
// offset so clients can parse them without guessing the daemon's locale.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job is the transport representation of a queue job.
type Job struct {
	ID           int64           `json:"id"`
	VODID        string          `json:"vodId"`
	SourceURL    string          `json:"sourceUrl"`
	UserID       string          `json:"userId,omitempty"`
	Title        string          `json:"title,omitempty"`
	Status       string          `json:"status"`
	Progress     JobProgress     `json:"progress"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	VideoPath    string          `json:"videoPath,omitempty"`
	AudioPath    string          `json:"audioPath,omitempty"`
	Moments      json.RawMessage `json:"moments,omitempty"`
	Clips        json.RawMessage `json:"clips,omitempty"`
	Settings     json.RawMessage `json:"settings,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// JobProgress reports where a job sits inside its current stage.
type JobProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message,omitempty"`
}

// WorkflowStatus summarizes the processing loop.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	LastError  string         `json:"lastError,omitempty"`
	LastJob    *Job           `json:"lastJob,omitempty"`
	QueueStats map[string]int `json:"queueStats"`
	StageNames []string       `json:"stageNames"`
}

// DependencyStatus reports availability of one external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// SubmitJobRequest is the POST /api/jobs body.
type SubmitJobRequest struct {
	SourceURL string          `json:"sourceUrl"`
	VODID     string          `json:"vodId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

// SubmitJobResponse reports the queued job. Created is false when the VOD
// already had a live job and the submission was deduplicated.
type SubmitJobResponse struct {
	Job     Job  `json:"job"`
	Created bool `json:"created"`
}

// ResumeJobRequest selects the stage a resumed job restarts from. An empty
// stage restarts the job from the first configured stage.
type ResumeJobRequest struct {
	From string `json:"from,omitempty"`
}

// JobListResponse wraps a job collection.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// CountResponse reports how many rows a queue maintenance call touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

// QueueHealthResponse carries aggregate queue counters.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// DatabaseHealthResponse reports queue database integrity details.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"dbPath"`
	DatabaseExists   bool     `json:"databaseExists"`
	DatabaseReadable bool     `json:"databaseReadable"`
	SchemaVersion    string   `json:"schemaVersion,omitempty"`
	TableExists      bool     `json:"tableExists"`
	ColumnsPresent   []string `json:"columnsPresent,omitempty"`
	MissingColumns   []string `json:"missingColumns,omitempty"`
	IntegrityCheck   bool     `json:"integrityCheck"`
	TotalJobs        int      `json:"totalJobs"`
	Error            string   `json:"error,omitempty"`
}

// HealthResponse is the unauthenticated liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusLine is one labelled row in rendered status output. Severity is one
// of "ok", "info", "warn", or "error".
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness for status output.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// NotificationTestResponse reports the outcome of a notification test.
type NotificationTestResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// ProgressEvent is one websocket frame describing job progress. Type is
// "progress" while the job is live and "terminal" once it completes or fails,
// after which the stream closes.
type ProgressEvent struct {
	Type         string      `json:"type"`
	JobID        int64       `json:"jobId"`
	Status       string      `json:"status"`
	Progress     JobProgress `json:"progress"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

// ErrorResponse carries a transport-level error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

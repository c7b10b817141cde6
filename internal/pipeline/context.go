package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/queue"
	"clipforge/internal/signals"
)

// Clip is one extracted highlight derived from a fused moment. Later stages
// replace Path as the clip is reframed and captioned, and fill StoredPath
// and PublicURL once the clip lands in the library.
type Clip struct {
	ID            string               `json:"id"`
	Path          string               `json:"path"`
	ThumbnailPath string               `json:"thumbnail_path,omitempty"`
	SubtitlePath  string               `json:"subtitle_path,omitempty"`
	StartTime     float64              `json:"start_time"`
	EndTime       float64              `json:"end_time"`
	Duration      float64              `json:"duration"`
	Title         string               `json:"title,omitempty"`
	Moment        signals.SignalMoment `json:"moment"`
	StoredPath    string               `json:"stored_path,omitempty"`
	PublicURL     string               `json:"public_url,omitempty"`
}

// Context carries all per-job state between pipeline stages. The orchestrator
// owns the single canonical copy; each stage receives it by value and returns
// an updated copy, so no two goroutines ever mutate the same Context.
type Context struct {
	JobID     int64
	VODID     string
	UserID    string
	SourceURL string
	Title     string
	Settings  map[string]any

	WorkDir   string
	TempDir   string
	OutputDir string

	VideoPath string
	AudioPath string

	Moments []signals.SignalMoment
	Clips   []Clip

	Progress float64

	FilesToCleanup []string
}

// NewContext builds the job-scoped context for one pipeline run. Directory
// paths derive from the job ID so a restarted run lands in the same place;
// artifact paths and serialized moments stored on the job record seed the
// context so completed filesystem work is not redone.
func NewContext(cfg *config.Config, job *queue.Job) (Context, error) {
	if job == nil {
		return Context{}, fmt.Errorf("job is required")
	}
	workDir := filepath.Join(cfg.Paths.WorkDir, fmt.Sprintf("job-%d", job.ID))
	pc := Context{
		JobID:     job.ID,
		VODID:     job.VODID,
		UserID:    job.UserID,
		SourceURL: job.SourceURL,
		Title:     job.Title,
		WorkDir:   workDir,
		TempDir:   filepath.Join(workDir, "tmp"),
		OutputDir: filepath.Join(workDir, "output"),
		VideoPath: job.VideoPath,
		AudioPath: job.AudioPath,
		Progress:  job.ProgressPercent,
	}

	for _, dir := range []string{pc.WorkDir, pc.TempDir, pc.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Context{}, fmt.Errorf("create job directory %q: %w", dir, err)
		}
	}
	pc = pc.RegisterCleanup(pc.WorkDir)

	if strings.TrimSpace(job.SettingsJSON) != "" {
		settings := make(map[string]any)
		if err := json.Unmarshal([]byte(job.SettingsJSON), &settings); err != nil {
			return Context{}, fmt.Errorf("decode job settings: %w", err)
		}
		pc.Settings = settings
	}
	if strings.TrimSpace(job.MomentsJSON) != "" {
		var moments []signals.SignalMoment
		if err := json.Unmarshal([]byte(job.MomentsJSON), &moments); err != nil {
			return Context{}, fmt.Errorf("decode job moments: %w", err)
		}
		pc.Moments = moments
	}
	if strings.TrimSpace(job.ClipsJSON) != "" {
		var clips []Clip
		if err := json.Unmarshal([]byte(job.ClipsJSON), &clips); err != nil {
			return Context{}, fmt.Errorf("decode job clips: %w", err)
		}
		pc.Clips = clips
	}

	return pc, nil
}

// SetProgress raises the context progress to percent. Progress is monotone
// within a run, so a value below the current one is ignored.
func (pc Context) SetProgress(percent float64) Context {
	if percent > pc.Progress {
		pc.Progress = percent
	}
	if pc.Progress > 100 {
		pc.Progress = 100
	}
	return pc
}

// RegisterCleanup records a filesystem path for removal on terminal failure.
// Blank and already-registered paths are ignored.
func (pc Context) RegisterCleanup(path string) Context {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return pc
	}
	for _, existing := range pc.FilesToCleanup {
		if existing == trimmed {
			return pc
		}
	}
	cleanup := make([]string, 0, len(pc.FilesToCleanup)+1)
	cleanup = append(cleanup, pc.FilesToCleanup...)
	cleanup = append(cleanup, trimmed)
	pc.FilesToCleanup = cleanup
	return pc
}

// MarshalMoments serializes the fused moments for the job record.
func (pc Context) MarshalMoments() (string, error) {
	if len(pc.Moments) == 0 {
		return "", nil
	}
	payload, err := json.Marshal(pc.Moments)
	if err != nil {
		return "", fmt.Errorf("marshal moments: %w", err)
	}
	return string(payload), nil
}

// MarshalClips serializes the clip records for the job record.
func (pc Context) MarshalClips() (string, error) {
	if len(pc.Clips) == 0 {
		return "", nil
	}
	payload, err := json.Marshal(pc.Clips)
	if err != nil {
		return "", fmt.Errorf("marshal clips: %w", err)
	}
	return string(payload), nil
}

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// progressRecorder mirrors pipeline stage boundaries into the job record.
// Reports arrive sequentially from a single orchestrator run, so the shared
// job pointer is safe to mutate without locking.
type progressRecorder struct {
	store  *queue.Store
	logger *slog.Logger
	job    *queue.Job
}

func (r *progressRecorder) ReportProgress(ctx context.Context, report pipeline.Report) {
	if report.Failed {
		// Terminal failure is persisted once by the manager, which still
		// holds the pipeline error with the final context snapshot.
		return
	}

	job := r.job
	if report.Done {
		job.Status = queue.StatusCompleted
		applySnapshot(r.logger, job, report.Snapshot)
		job.SetProgressComplete(deriveStageLabel(queue.StatusCompleted), report.Message)
		job.LastHeartbeat = nil
	} else {
		status, ok := statusForStage(report.Stage)
		if !ok {
			r.logger.Warn("no queue status mapped for stage", logging.String(logging.FieldStage, report.Stage))
			return
		}
		job.Status = status
		applySnapshot(r.logger, job, report.Snapshot)
		job.SetProgress(deriveStageLabel(status), report.Message, report.Percent)
		now := time.Now().UTC()
		job.LastHeartbeat = &now
	}

	if err := r.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("daemon shutting down, could not persist progress")
		} else {
			r.logger.Warn("failed to persist progress",
				logging.Error(err),
				logging.String(logging.FieldStage, report.Stage),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
	}
}

// applySnapshot copies pipeline artifacts onto the job record so restarts
// and the status API see what the run has produced so far.
func applySnapshot(logger *slog.Logger, job *queue.Job, pc pipeline.Context) {
	if title := strings.TrimSpace(pc.Title); title != "" {
		job.Title = title
	}
	if vodID := strings.TrimSpace(pc.VODID); vodID != "" {
		job.VODID = vodID
	}
	if pc.VideoPath != "" {
		job.VideoPath = pc.VideoPath
	}
	if pc.AudioPath != "" {
		job.AudioPath = pc.AudioPath
	}
	if moments, err := pc.MarshalMoments(); err != nil {
		logger.Warn("failed to serialize moments", logging.Error(err))
	} else if moments != "" {
		job.MomentsJSON = moments
	}
	if clips, err := pc.MarshalClips(); err != nil {
		logger.Warn("failed to serialize clips", logging.Error(err))
	} else if clips != "" {
		job.ClipsJSON = clips
	}
}

// statusForStage maps a pipeline stage name to the queue status shown while
// that stage runs.
func statusForStage(stage string) (queue.Status, bool) {
	switch stage {
	case "download":
		return queue.StatusDownloading, true
	case "analyze":
		return queue.StatusAnalyzing, true
	case "extract":
		return queue.StatusExtracting, true
	case "reframe":
		return queue.StatusReframing, true
	case "caption":
		return queue.StatusCaptioning, true
	case "upload":
		return queue.StatusUploading, true
	case "completed":
		return queue.StatusCompleted, true
	default:
		return "", false
	}
}

func withJobContext(ctx context.Context, job *queue.Job, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if job != nil {
		ctx = services.WithJobID(ctx, job.ID)
		if vodID := strings.TrimSpace(job.VODID); vodID != "" {
			ctx = services.WithVODID(ctx, vodID)
		}
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
)

// ResumeJob reruns a job starting at the named stage. The pipeline context is
// rebuilt from artifacts recorded on the job row, so filesystem work finished
// by earlier stages is not redone. An empty stage name restarts from the
// first configured stage.
//
// The run executes on the caller's goroutine. Moving the job into a
// processing status up front keeps the polling loop off it; jobs that are
// already processing cannot be resumed.
func (m *Manager) ResumeJob(ctx context.Context, id int64, fromStage string) (*queue.Job, error) {
	stages := m.stageList()
	if len(stages) == 0 {
		return nil, errors.New("workflow stages not configured")
	}

	target := strings.TrimSpace(fromStage)
	if target == "" {
		target = stages[0].Name()
	}
	known := false
	for _, stage := range stages {
		if stage.Name() == target {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown pipeline stage %q", target)
	}
	status, ok := statusForStage(target)
	if !ok {
		return nil, fmt.Errorf("no queue status mapped for stage %q", target)
	}

	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", id, err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %d not found", id)
	}
	if job.IsProcessing() {
		return nil, fmt.Errorf("job %d is already processing", id)
	}

	requestID := uuid.NewString()
	jobCtx := withJobContext(ctx, job, requestID)
	jobLogger := logging.WithContext(jobCtx, logging.NewComponentLogger(m.logger, "workflow-resume"))

	now := time.Now().UTC()
	label := deriveStageLabel(status)
	job.Status = status
	job.SetProgress(label, fmt.Sprintf("%s resumed", label), job.ProgressPercent)
	job.ErrorMessage = ""
	job.LastHeartbeat = &now
	if err := m.store.Update(jobCtx, job); err != nil {
		return nil, fmt.Errorf("persist resume transition: %w", err)
	}
	m.setLastJob(job)
	m.onJobStarted(jobCtx, job)

	jobLogger.Info("job resumed",
		logging.String(logging.FieldEventType, "job_resume"),
		logging.String(logging.FieldStage, target),
	)

	jobStart := time.Now()
	sink := &progressRecorder{store: m.store, logger: jobLogger, job: job}
	orch := pipeline.NewOrchestrator(m.cfg, stages, sink, jobLogger)

	pc, execErr := m.executeWithHeartbeat(jobCtx, job, func(runCtx context.Context) (pipeline.Context, error) {
		return orch.Resume(runCtx, job, target)
	})
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			jobLogger.Debug("resume interrupted by shutdown")
			return job, execErr
		}
		m.handleJobFailure(jobCtx, job, execErr)
		m.setLastError(execErr)
		return job, execErr
	}

	jobLogger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("clips", len(pc.Clips)),
		logging.Duration("job_duration", time.Since(jobStart)),
	)
	m.setLastJob(job)
	m.notifyJobCompleted(jobCtx, job, len(pc.Clips))
	m.checkQueueCompletion(jobCtx)
	return job, nil
}

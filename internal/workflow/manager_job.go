package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
)

func (m *Manager) processJob(ctx context.Context, runLogger *slog.Logger, job *queue.Job) error {
	requestID := uuid.NewString()
	jobCtx := withJobContext(ctx, job, requestID)
	jobLogger := logging.WithContext(jobCtx, runLogger)

	if err := m.runPreflightChecks(jobCtx, jobLogger); err != nil {
		// Leave the job queued so the environment can be fixed without
		// burning an attempt; the loop halts until the next poll.
		m.setLastError(err)
		m.waitForJobOrShutdown(ctx)
		return nil
	}

	if err := m.claimJob(jobCtx, job); err != nil {
		jobLogger.Error("failed to transition job to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}
	m.onJobStarted(jobCtx, job)

	return m.executeJob(jobCtx, jobLogger, job)
}

// RunJob drives one job through the pipeline in the foreground and blocks
// until it reaches a terminal status. Unlike the queue loop, a preflight
// failure is returned to the caller instead of parking the job.
func (m *Manager) RunJob(ctx context.Context, job *queue.Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow-foreground")

	requestID := uuid.NewString()
	jobCtx := withJobContext(ctx, job, requestID)
	jobLogger := logging.WithContext(jobCtx, logger)

	if err := m.runPreflightChecks(jobCtx, jobLogger); err != nil {
		return err
	}
	if err := m.claimJob(jobCtx, job); err != nil {
		return fmt.Errorf("transition job to processing: %w", err)
	}
	m.onJobStarted(jobCtx, job)
	return m.executeJob(jobCtx, jobLogger, job)
}

func (m *Manager) executeJob(ctx context.Context, jobLogger *slog.Logger, job *queue.Job) error {
	jobStart := time.Now()
	jobLogger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("title", strings.TrimSpace(job.Title)),
		logging.String("source_url", strings.TrimSpace(job.SourceURL)),
	)

	sink := &progressRecorder{store: m.store, logger: jobLogger, job: job}
	orch := pipeline.NewOrchestrator(m.cfg, m.stageList(), sink, jobLogger)

	pc, execErr := m.executeWithHeartbeat(ctx, job, func(runCtx context.Context) (pipeline.Context, error) {
		return orch.Run(runCtx, job)
	})
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			jobLogger.Debug("job interrupted by shutdown")
			return execErr
		}
		m.handleJobFailure(ctx, job, execErr)
		m.setLastError(execErr)
		return execErr
	}

	jobLogger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("clips", len(pc.Clips)),
		logging.Duration("job_duration", time.Since(jobStart)),
	)
	m.setLastJob(job)
	m.notifyJobCompleted(ctx, job, len(pc.Clips))
	m.checkQueueCompletion(ctx)
	return nil
}

// executeWithHeartbeat keeps the job's heartbeat fresh for the duration of
// run, so the stale-job reclaim never steals a job that is still making
// progress.
func (m *Manager) executeWithHeartbeat(ctx context.Context, job *queue.Job, run func(context.Context) (pipeline.Context, error)) (pipeline.Context, error) {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	pc, execErr := run(ctx)
	hbCancel()
	hbWG.Wait()
	return pc, execErr
}

// claimJob moves a queued job into the first stage's processing status so a
// second daemon or a crashed run never picks it up concurrently.
func (m *Manager) claimJob(ctx context.Context, job *queue.Job) error {
	stages := m.stageList()
	if len(stages) == 0 {
		return errors.New("workflow stages not configured")
	}
	status, ok := statusForStage(stages[0].Name())
	if !ok {
		return fmt.Errorf("no queue status mapped for stage %q", stages[0].Name())
	}

	now := time.Now().UTC()
	job.Status = status
	label := deriveStageLabel(status)
	job.InitProgress(label, fmt.Sprintf("%s started", label))
	job.LastHeartbeat = &now
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastJob(job)
	return nil
}

func (m *Manager) stageList() []pipeline.Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stages
}

// StageNames returns the configured stage names in execution order.
func (m *Manager) StageNames() []string {
	stages := m.stageList()
	names := make([]string, len(stages))
	for i, stage := range stages {
		names[i] = stage.Name()
	}
	return names
}

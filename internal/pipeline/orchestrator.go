package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// Orchestrator drives one job through the fixed stage sequence. It owns the
// canonical Context between stage calls; stage execution is strictly
// sequential, so a daemon running jobs concurrently builds one orchestrator
// per in-flight job.
type Orchestrator struct {
	stages           []Stage
	sink             ProgressSink
	logger           *slog.Logger
	retryDelay       time.Duration
	cleanupOnFailure bool
	newContext       func(job *queue.Job) (Context, error)
	sleep            func(ctx context.Context, d time.Duration) error
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the retry backoff sleep, letting tests observe delays
// without waiting them out.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// NewOrchestrator builds an orchestrator over the supplied stage sequence.
// A nil sink discards progress reports and a nil logger silences logging.
func NewOrchestrator(cfg *config.Config, stages []Stage, sink ProgressSink, logger *slog.Logger, opts ...Option) *Orchestrator {
	if sink == nil {
		sink = NopSink()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		stages:           stages,
		sink:             sink,
		logger:           logger,
		retryDelay:       time.Duration(cfg.Pipeline.RetryDelaySeconds) * time.Second,
		cleanupOnFailure: cfg.Pipeline.CleanupOnFailure,
		newContext:       func(job *queue.Job) (Context, error) { return NewContext(cfg, job) },
		sleep:            sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StageNames returns the configured stage names in execution order.
func (o *Orchestrator) StageNames() []string {
	names := make([]string, len(o.stages))
	for i, stage := range o.stages {
		names[i] = stage.Name()
	}
	return names
}

// Run drives a job through every stage from the beginning.
func (o *Orchestrator) Run(ctx context.Context, job *queue.Job) (Context, error) {
	pc, err := o.newContext(job)
	if err != nil {
		return Context{}, fmt.Errorf("build pipeline context: %w", err)
	}
	return o.runFrom(ctx, pc, 0)
}

// Resume drives a job through the stage sequence starting at the named
// stage. The context is rebuilt from the job record, so artifacts persisted
// by earlier stages survive into the resumed run.
func (o *Orchestrator) Resume(ctx context.Context, job *queue.Job, fromStage string) (Context, error) {
	start := -1
	for i, stage := range o.stages {
		if stage.Name() == fromStage {
			start = i
			break
		}
	}
	if start < 0 {
		return Context{}, fmt.Errorf("unknown pipeline stage %q", fromStage)
	}
	pc, err := o.newContext(job)
	if err != nil {
		return Context{}, fmt.Errorf("rebuild pipeline context: %w", err)
	}
	return o.runFrom(ctx, pc, start)
}

func (o *Orchestrator) runFrom(ctx context.Context, pc Context, start int) (Context, error) {
	for i := start; i < len(o.stages); i++ {
		stage := o.stages[i]
		stageStart := time.Now()
		o.report(ctx, Report{
			Stage:    stage.Name(),
			Message:  stage.Name() + " started",
			Percent:  pc.Progress,
			Snapshot: pc,
		})
		o.logger.Info(
			"stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String(logging.FieldStage, stage.Name()),
			logging.Int64(logging.FieldJobID, pc.JobID),
		)

		next, err := o.executeStageWithRetry(ctx, stage, pc)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				o.logger.Debug("stage interrupted by shutdown", logging.String(logging.FieldStage, stage.Name()))
				return pc, err
			}
			return pc, o.failRun(ctx, stage, pc, err)
		}
		pc = next

		o.report(ctx, Report{
			Stage:    stage.Name(),
			Message:  stage.Name() + " finished",
			Percent:  pc.Progress,
			Snapshot: pc,
		})
		o.logger.Info(
			"stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String(logging.FieldStage, stage.Name()),
			logging.Int64(logging.FieldJobID, pc.JobID),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
	}

	pc = pc.SetProgress(100)
	o.report(ctx, Report{
		Stage:    "completed",
		Message:  "Pipeline complete",
		Percent:  pc.Progress,
		Done:     true,
		Snapshot: pc,
	})
	return pc, nil
}

// failRun handles the terminal failure path: cleanup when configured, a
// failure report, and the wrapped error the caller receives. Cleanup
// problems are logged and never mask the stage failure.
func (o *Orchestrator) failRun(ctx context.Context, stage Stage, pc Context, cause error) error {
	perr := &PipelineError{Stage: stage.Name(), Context: pc, Cause: cause}
	o.logger.Error(
		"pipeline failed",
		logging.String(logging.FieldStage, stage.Name()),
		logging.Int64(logging.FieldJobID, pc.JobID),
		logging.Error(cause),
	)
	if o.cleanupOnFailure {
		o.cleanup(pc)
	}
	o.report(ctx, Report{
		Stage:    stage.Name(),
		Message:  services.Details(cause).Message,
		Percent:  pc.Progress,
		Failed:   true,
		Snapshot: pc,
	})
	return perr
}

func (o *Orchestrator) executeStageWithRetry(ctx context.Context, stage Stage, pc Context) (Context, error) {
	maxRetries := 0
	if stage.Retryable() {
		if n := stage.MaxRetries(); n > 0 {
			maxRetries = n
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		next, err := stage.Execute(ctx, pc)
		if err == nil {
			return next, nil
		}
		lastErr = err
		o.invokeErrorHook(ctx, stage, pc, err)

		if errors.Is(err, context.Canceled) {
			return pc, err
		}
		if services.IsValidation(err) {
			// Missing inputs or bad configuration never heal on retry.
			return pc, err
		}
		if attempt < maxRetries {
			delay := o.retryDelay * time.Duration(attempt+1)
			o.logger.Warn(
				"stage failed, retrying",
				logging.String(logging.FieldStage, stage.Name()),
				logging.Int("attempt", attempt+1),
				logging.Int("max_attempts", maxRetries+1),
				logging.Duration("backoff", delay),
				logging.Error(err),
			)
			if sleepErr := o.sleep(ctx, delay); sleepErr != nil {
				return pc, sleepErr
			}
		}
	}
	return pc, lastErr
}

func (o *Orchestrator) invokeErrorHook(ctx context.Context, stage Stage, pc Context, stageErr error) {
	hook, ok := stage.(ErrorHook)
	if !ok {
		return
	}
	if err := hook.OnError(ctx, pc, stageErr); err != nil {
		o.logger.Warn(
			"stage error hook failed",
			logging.String(logging.FieldStage, stage.Name()),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) cleanup(pc Context) {
	for _, path := range pc.FilesToCleanup {
		if err := os.RemoveAll(path); err != nil {
			o.logger.Warn("cleanup failed", logging.String("path", path), logging.Error(err))
		}
	}
}

func (o *Orchestrator) report(ctx context.Context, report Report) {
	o.sink.ReportProgress(ctx, report)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

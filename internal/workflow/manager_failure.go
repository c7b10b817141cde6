package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

func (m *Manager) handleJobFailure(ctx context.Context, job *queue.Job, jobErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "workflow-manager"))

	stageName := ""
	var perr *pipeline.PipelineError
	if errors.As(jobErr, &perr) {
		stageName = perr.Stage
		// The failure snapshot still names artifacts produced before the
		// stage broke; keep them on the record so a retry resumes there.
		applySnapshot(logger, job, perr.Context)
	}

	message := classifyJobFailure(stageName, jobErr)
	job.SetFailed(message)

	details := services.Details(jobErr)
	attrs := []logging.Attr{
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String(logging.FieldStage, stageName),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Error(jobErr),
	}
	if details.Marker != nil {
		attrs = append(attrs, logging.String("error_kind", details.Marker.Error()))
	}
	logger.Error("job failed", logging.Args(attrs...)...)

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update job failure")
		} else {
			logger.Error("failed to persist job failure", logging.Error(err))
		}
	}

	m.setLastJob(job)
	m.notifyJobFailure(ctx, stageName, job, jobErr)
	m.checkQueueCompletion(ctx)
}

func classifyJobFailure(stageName string, jobErr error) string {
	if jobErr == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}
	message := strings.TrimSpace(services.Details(jobErr).Message)
	if message == "" {
		message = strings.TrimSpace(jobErr.Error())
	}
	if message == "" {
		message = stageFailureMessage(stageName, "failed")
	}
	return message
}

func stageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("pipeline %s", defaultMsg)
}

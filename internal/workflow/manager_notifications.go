package workflow

import (
	"context"
	"errors"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
)

func (m *Manager) notifyJobFailure(ctx context.Context, stageName string, job *queue.Job, jobErr error) {
	if m.notifier == nil || jobErr == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-manager"))
	if err := m.notifier.Publish(ctx, notifications.EventJobFailed, notifications.Payload{
		"title": job.DisplayTitle(),
		"stage": stageName,
		"error": jobErr,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			logger.Debug("job failure notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyJobCompleted(ctx context.Context, job *queue.Job, clips int) {
	if m.notifier == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-manager"))
	if err := m.notifier.Publish(ctx, notifications.EventJobCompleted, notifications.Payload{
		"title": job.DisplayTitle(),
		"clips": clips,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send completion notification")
		} else {
			logger.Debug("job completion notification failed", logging.Error(err))
		}
	}
}

// onJobStarted records the start of a processing batch and announces the job.
// The first claimed job after an idle queue arms the queue-completion summary.
func (m *Manager) onJobStarted(ctx context.Context, job *queue.Job) {
	m.mu.Lock()
	if !m.queueActive {
		m.queueActive = true
		m.queueStart = time.Now()
	}
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventJobStarted, notifications.Payload{
		"title": job.DisplayTitle(),
		"vodID": job.VODID,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send start notification")
		} else {
			m.logger.Debug("job start notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not check queue completion")
		} else {
			m.logger.Warn("queue stats unavailable for completion notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "completion notification will not be sent"),
			)
		}
		return
	}
	if active := countActiveJobs(stats); active > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	processed := stats[queue.StatusCompleted]
	failed := stats[queue.StatusFailed]
	if err := m.notifier.Publish(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"processed": processed,
		"failed":    failed,
		"duration":  duration,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send queue completion notification")
		} else {
			m.logger.Debug("queue completion notification failed", logging.Error(err))
		}
	}
}

func countActiveJobs(stats map[queue.Status]int) int {
	total := 0
	for status, count := range stats {
		if status == queue.StatusCompleted || status == queue.StatusFailed {
			continue
		}
		total += count
	}
	return total
}

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// HeartbeatMonitor manages job heartbeats and stale job reclamation.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStaleJobs requeues jobs that stopped sending heartbeats, typically
// after a daemon crash mid-pipeline.
func (h *HeartbeatMonitor) ReclaimStaleJobs(ctx context.Context, logger *slog.Logger) error {
	if h.heartbeatTimeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
	return nil
}

// StartLoop runs a heartbeat updater for a specific job until context cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.logger, "workflow-heartbeat"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("daemon shutting down, heartbeat update cancelled")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}

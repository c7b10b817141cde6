package workflow

import (
	"context"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	LastError  string
	LastJob    *queue.Job
	QueueStats map[queue.Status]int
	StageNames []string
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	names := make([]string, 0, len(m.stages))
	for _, stage := range m.stages {
		names = append(names, stage.Name())
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageNames: names}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}

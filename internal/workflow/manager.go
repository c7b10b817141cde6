package workflow

import (
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/vodcache"
)

// Manager coordinates queue processing using the registered pipeline stages.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	notifier     notifications.Service

	heartbeat *HeartbeatMonitor
	cache     *vodcache.Cache

	stages []pipeline.Stage

	mu      sync.RWMutex
	running bool
	cancel  func()
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job

	queueActive bool
	queueStart  time.Time
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
	if cfg.VOD.CacheEnabled {
		cache, err := vodcache.Open(cfg.VODCachePath(), time.Duration(cfg.VOD.CacheTTLHours)*time.Hour, logger)
		if err != nil {
			logger.Warn("vod signal cache unavailable; chat and clip fetches will not be reused",
				logging.Error(err),
				logging.String(logging.FieldEventType, "vodcache_open_failed"),
			)
		} else {
			m.cache = cache
		}
	}
	return m
}

// ConfigureStages registers the concrete pipeline stages the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := set.list()
	m.mu.Lock()
	m.stages = stages
	m.mu.Unlock()
}

// Cache exposes the shared VOD signal cache. It is nil when caching is
// disabled or the cache failed to open; the analysis stage treats nil as
// cache-off.
func (m *Manager) Cache() *vodcache.Cache {
	return m.cache
}

// Close releases resources held by the manager. Callers stop the manager
// before closing it.
func (m *Manager) Close() error {
	if m.cache == nil {
		return nil
	}
	return m.cache.Close()
}

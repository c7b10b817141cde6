package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
	"clipforge/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	return NewWithNotifier(cfg, store, logger, wf, nil)
}

// NewWithNotifier constructs a daemon with a custom notification service.
// A nil notifier falls back to the service derived from configuration.
func NewWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipforged.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		notifier: notifier,
		logPath:  filepath.Join(cfg.Paths.LogDir, "clipforge.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start launches the workflow manager and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("clipforge daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if err := d.workflow.Close(); err != nil {
		d.logger.Warn("failed to close workflow manager", logging.Error(err))
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// StageNames lists the configured pipeline stages in execution order.
func (d *Daemon) StageNames() []string {
	return d.workflow.StageNames()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     summary,
		QueueDBPath:  d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

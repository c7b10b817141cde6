package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
)

const pollInterval = 200 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// Launch starts a detached clipforge daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForAPI polls the daemon health endpoint until it answers or the timeout
// elapses.
func WaitForAPI(ctx context.Context, client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if err := client.Health(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon when no API answers, then waits for it to
// come up. The daemon begins processing on launch, so a reachable API means a
// running daemon.
func EnsureStarted(ctx context.Context, client *api.Client, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if client == nil {
		return StartResult{}, errors.New("api client is required")
	}
	if err := client.Health(ctx); err == nil {
		return StartResult{State: StartStateAlreadyRunning}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForAPI(ctx, client, waitTimeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// PIDFilePath returns where the daemon records its process id.
func PIDFilePath(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "clipforged.pid")
}

// LockFilePath returns the daemon's single-instance lock location.
func LockFilePath(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "clipforged.lock")
}

// ReadPID parses the daemon pid file. A missing file returns 0 with no error.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(value)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q in %s", value, pidPath)
	}
	return pid, nil
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		pid = fallbackPID
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// ErrDaemonNotRunning indicates no daemon process could be found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	SignalSent bool
	ForcedKill bool
	PID        int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate signals the daemon to shut down and force-kills the
// process if it is still alive after gracePeriod. The daemon traps SIGTERM
// and drains in-flight work before exiting, so the graceful path is a plain
// signal rather than an API call.
func StopAndTerminate(ctx context.Context, client *api.Client, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	if cfg == nil {
		return StopResult{}, errors.New("configuration not available")
	}

	pidPath := PIDFilePath(cfg)
	lockPath := LockFilePath(cfg)
	pid := 0
	if client != nil {
		if status, err := client.Status(ctx); err == nil {
			pid = status.PID
			if dir := filepath.Dir(strings.TrimSpace(status.LockFilePath)); dir != "" && dir != "." {
				pidPath = filepath.Join(dir, "clipforged.pid")
				lockPath = status.LockFilePath
			}
		}
	}
	if pid <= 0 {
		filePID, err := ReadPID(pidPath)
		if err != nil {
			return StopResult{}, err
		}
		pid = filePID
	}
	if pid <= 0 {
		return StopResult{}, ErrDaemonNotRunning
	}

	result := StopResult{PID: pid}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return result, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			_ = os.Remove(pidPath)
			return StopResult{}, ErrDaemonNotRunning
		}
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	result.SignalSent = true

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	killedPID, killErr := ForceKillProcess(pidPath, lockPath, pid)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if running, then starts it again.
func Restart(ctx context.Context, client *api.Client, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(ctx, client, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(ctx, client, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks
// for queue stats and dependency probes when no daemon answers.
func BuildStatusSnapshot(ctx context.Context, client *api.Client, cfg *config.Config) (*api.DaemonStatus, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	status := &api.DaemonStatus{}
	if client != nil {
		if resp, err := client.Status(ctx); err == nil && resp != nil {
			status = resp
		}
	}

	if !status.Running {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if store, openErr := queue.Open(cfg); openErr == nil {
			stats, statsErr := store.Stats(queryCtx)
			_ = store.Close()
			if statsErr == nil {
				status.Workflow.QueueStats = api.MergeQueueStats(stats)
			}
		}
		if status.QueueDBPath == "" {
			status.QueueDBPath = cfg.DatabasePath()
		}
	}

	if len(status.Dependencies) == 0 {
		status.Dependencies = ResolveDependencies(ctx, cfg)
	}
	return status, nil
}

// ResolveDependencies probes external tool availability for status output.
func ResolveDependencies(ctx context.Context, cfg *config.Config) []api.DependencyStatus {
	if cfg == nil {
		return nil
	}
	return api.FromDependencies(preflight.CheckSystemDeps(ctx, cfg))
}

// BuildSystemChecks resolves status lines that combine runtime state and
// configuration checks.
func BuildSystemChecks(cfg *config.Config, daemonRunning bool) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 6)
	if daemonRunning {
		lines = append(lines, api.StatusLine{Label: "ClipForge", Severity: "ok", Detail: "Running"})
	} else {
		lines = append(lines, api.StatusLine{Label: "ClipForge", Severity: "warn", Detail: "Not running (run `clipforge start`)"})
	}

	chat := preflight.CheckChatSourceFromConfig(cfg)
	switch {
	case chat.Passed && strings.EqualFold(strings.TrimSpace(chat.Detail), "Not configured"):
		lines = append(lines, api.StatusLine{Label: "Chat Source", Severity: "info", Detail: chat.Detail})
	case chat.Passed:
		lines = append(lines, api.StatusLine{Label: "Chat Source", Severity: "ok", Detail: chat.Detail})
	default:
		lines = append(lines, api.StatusLine{Label: "Chat Source", Severity: "warn", Detail: chat.Detail})
	}

	if cfg.Pipeline.CaptionsEnabled {
		lines = append(lines, api.StatusLine{Label: "Captions", Severity: "ok", Detail: "Enabled"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Captions", Severity: "info", Detail: "Disabled"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "warn", Detail: "Not configured"})
	}

	return lines
}

// BuildWorkspaceChecks resolves configured directory readiness.
func BuildWorkspaceChecks(cfg *config.Config) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Workspace", path: cfg.Paths.WorkDir},
		{label: "Library", path: cfg.Paths.LibraryDir},
		{label: "Logs", path: cfg.Paths.LogDir},
	} {
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, api.StatusLine{
			Label:    dir.label,
			Severity: severity,
			Detail:   result.Detail,
		})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []api.DependencyStatus) api.DependencySummary {
	if len(deps) == 0 {
		return api.DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(deps) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(deps))
	}

	return api.DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}

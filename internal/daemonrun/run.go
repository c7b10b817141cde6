// Package daemonrun assembles and runs the clipforge daemon process: logger,
// queue store, workflow manager with the configured pipeline stages, daemon
// lifecycle, and the HTTP control surface.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"clipforge/internal/analysis"
	"clipforge/internal/api"
	"clipforge/internal/captioning"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/download"
	"clipforge/internal/extraction"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/reframing"
	"clipforge/internal/upload"
	"clipforge/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the clipforge daemon runtime and blocks until the context is
// cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := logging.FilePath(cfg)
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		Outputs:     []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "clipforged.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	RegisterStages(manager, cfg, logger)

	d, err := daemon.NewWithNotifier(cfg, store, logger, manager, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	server, err := api.NewServer(cfg, d, store, logger)
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}
	if err := server.Start(signalCtx); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}
	defer server.Stop()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon will not process queued jobs"),
		)
	}

	<-signalCtx.Done()
	logger.Info("clipforge daemon shutting down")
	return nil
}

// RegisterStages wires the pipeline in execution order. Captioning joins only
// when enabled; the workflow skips nil entries.
func RegisterStages(mgr *workflow.Manager, cfg *config.Config, logger *slog.Logger) {
	if mgr == nil || cfg == nil {
		return
	}

	var captionStage pipeline.Stage
	if cfg.Pipeline.CaptionsEnabled {
		captionStage = captioning.New(cfg, logger)
	}

	mgr.ConfigureStages(workflow.StageSet{
		Download:   download.New(cfg, logger),
		Analysis:   analysis.New(cfg, logger, mgr.Cache()),
		Extraction: extraction.New(cfg, logger),
		Reframing:  reframing.New(cfg, logger),
		Captioning: captionStage,
		Upload:     upload.New(cfg, logger),
	})
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ytdlp := cfg.YtdlpBinary()
	ffmpeg := cfg.FFmpegBinary()
	ffprobe := cfg.FFprobeBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ytdlp_available", binaryAvailable(ytdlp)),
		logging.String("ytdlp_binary", ytdlp),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("chat_source_configured", strings.TrimSpace(cfg.VOD.ChatSourceURL) != ""),
		logging.Bool("captions_enabled", cfg.Pipeline.CaptionsEnabled),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

package download

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
	"clipforge/internal/services/ytdlp"
)

// minFreeBytes is the smallest amount of free space the work volume may
// have before a download is allowed to start. Source VODs routinely run
// multiple gigabytes.
const minFreeBytes = 2 << 30

// Stage fetches the source recording with yt-dlp and verifies the result
// before the analysis stage touches it.
type Stage struct {
	cfg        *config.Config
	logger     *slog.Logger
	downloader ytdlp.Client
	probe      func(ctx context.Context, path string) (ffprobe.Result, error)
	freeBytes  func(path string) (uint64, error)
}

// New constructs the download stage with real collaborators.
func New(cfg *config.Config, logger *slog.Logger) *Stage {
	client := ytdlp.NewCLI(
		ytdlp.WithBinary(cfg.YtdlpBinary()),
		ytdlp.WithFormat(cfg.VOD.DownloadFormat),
	)
	probe := func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, cfg.FFprobeBinary(), path)
	}
	return NewWithDependencies(cfg, logger, client, probe, freeBytes)
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(
	cfg *config.Config,
	logger *slog.Logger,
	downloader ytdlp.Client,
	probe func(ctx context.Context, path string) (ffprobe.Result, error),
	free func(path string) (uint64, error),
) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	if free == nil {
		free = freeBytes
	}
	return &Stage{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "download"),
		downloader: downloader,
		probe:      probe,
		freeBytes:  free,
	}
}

var _ pipeline.Stage = (*Stage)(nil)

func (s *Stage) Name() string { return "download" }

func (s *Stage) Retryable() bool { return true }

func (s *Stage) MaxRetries() int { return s.cfg.Pipeline.MaxRetries }

// Execute downloads the VOD into the job work directory and records the
// resulting video path on the context.
func (s *Stage) Execute(ctx context.Context, pc pipeline.Context) (pipeline.Context, error) {
	logger := logging.WithContext(ctx, s.logger)

	sourceURL := strings.TrimSpace(pc.SourceURL)
	if sourceURL == "" {
		return pc, services.Wrap(services.ErrValidation, "download", "validate", "job has no source URL", nil)
	}
	if s.downloader == nil {
		return pc, services.Wrap(services.ErrConfiguration, "download", "validate", "yt-dlp client unavailable", nil)
	}
	if free, err := s.freeBytes(pc.WorkDir); err != nil {
		logger.Warn("free space check failed", logging.Error(err))
	} else if free < minFreeBytes {
		return pc, services.Wrap(
			services.ErrValidation,
			"download",
			"check free space",
			fmt.Sprintf("work directory has %d MB free; at least %d MB required", free>>20, uint64(minFreeBytes)>>20),
			nil,
		)
	}
	pc = pc.SetProgress(2)

	// Metadata is best-effort: the download itself re-resolves the URL, so
	// a failed lookup only costs the title.
	if meta, err := s.downloader.FetchMetadata(ctx, sourceURL); err != nil {
		logger.Warn("vod metadata lookup failed", logging.Error(err))
	} else {
		if pc.Title == "" {
			pc.Title = strings.TrimSpace(meta.Title)
		}
		if pc.VODID == "" {
			pc.VODID = strings.TrimSpace(meta.ID)
		}
		logger.Info(
			"resolved vod metadata",
			logging.String(logging.FieldVODID, pc.VODID),
			logging.String("title", pc.Title),
			logging.Float64("duration_seconds", meta.Duration),
		)
	}

	downloadCtx := ctx
	if s.cfg.VOD.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		downloadCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.VOD.DownloadTimeout)*time.Second)
		defer cancel()
	}

	logger.Info(
		"starting vod download",
		logging.String("source_url", sourceURL),
		logging.String("work_dir", pc.WorkDir),
	)
	// yt-dlp reports several times a second; sample to one line per 10%.
	sampler := logging.NewProgressSampler(10)
	path, err := s.downloader.Download(downloadCtx, sourceURL, pc.WorkDir, func(update ytdlp.ProgressUpdate) {
		if !sampler.ShouldLog("download", update.Percent) {
			return
		}
		logger.Debug(
			"download progress",
			logging.Float64("percent", update.Percent),
			logging.String("speed", update.Speed),
			logging.String("eta", update.ETA),
		)
	})
	if err != nil {
		if downloadCtx.Err() != nil && ctx.Err() == nil {
			return pc, services.Wrap(services.ErrTimeout, "download", "yt-dlp download", "Download exceeded the configured timeout", err)
		}
		return pc, services.Wrap(
			services.ErrExternalTool,
			"download",
			"yt-dlp download",
			"yt-dlp download failed; check the source URL and network connectivity",
			err,
		)
	}
	pc = pc.RegisterCleanup(path)

	result, err := s.probe(ctx, path)
	if err != nil {
		return pc, services.Wrap(services.ErrExternalTool, "download", "probe video", "ffprobe could not inspect the downloaded file", err)
	}
	if result.VideoStreamCount() == 0 {
		return pc, services.Wrap(services.ErrValidation, "download", "verify video", "downloaded file has no video stream", nil)
	}
	duration := result.DurationSeconds()
	if !(duration > 0) {
		return pc, services.Wrap(services.ErrValidation, "download", "verify video", "downloaded file reports no duration", nil)
	}

	pc.VideoPath = path
	pc = pc.SetProgress(20)
	logger.Info(
		"vod download completed",
		logging.String("video_path", path),
		logging.Float64("duration_seconds", duration),
		logging.Int("audio_streams", result.AudioStreamCount()),
	)
	return pc, nil
}

// freeBytes reports the space available to unprivileged writers on the
// volume holding path. A missing directory is created first so fresh work
// roots do not fail the check.
func freeBytes(path string) (uint64, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return 0, err
	}
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

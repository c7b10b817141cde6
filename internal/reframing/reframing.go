package reframing

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"log/slog"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
)

// Reframer converts a clip to the target aspect ratio.
type Reframer interface {
	Reframe(ctx context.Context, input, output, targetAspect string, progress ffmpeg.ProgressFunc) (ffmpeg.ReframeResult, error)
}

// Stage converts extracted clips to the configured aspect ratio with a
// deterministic center crop. Clips already matching the target pass
// through untouched.
type Stage struct {
	cfg      *config.Config
	logger   *slog.Logger
	reframer Reframer
	probe    func(ctx context.Context, path string) (ffprobe.Result, error)
}

var _ pipeline.Stage = (*Stage)(nil)

// New constructs the reframing stage with real collaborators.
func New(cfg *config.Config, logger *slog.Logger) *Stage {
	probe := func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, cfg.FFprobeBinary(), path)
	}
	return NewWithDependencies(cfg, logger, ffmpeg.NewExecutor(cfg.FFmpegBinary(), logger), probe)
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(
	cfg *config.Config,
	logger *slog.Logger,
	reframer Reframer,
	probe func(ctx context.Context, path string) (ffprobe.Result, error),
) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "reframing"),
		reframer: reframer,
		probe:    probe,
	}
}

func (s *Stage) Name() string { return "reframe" }

func (s *Stage) Retryable() bool { return true }

func (s *Stage) MaxRetries() int { return s.cfg.Pipeline.MaxRetries }

// Execute reframes each clip in order. The stage returns a fresh clip
// slice so a failed run never leaves the caller's records half-updated.
func (s *Stage) Execute(ctx context.Context, pc pipeline.Context) (pipeline.Context, error) {
	logger := logging.WithContext(ctx, s.logger)

	target := strings.TrimSpace(s.cfg.Pipeline.TargetAspect)
	if target == "" {
		logger.Info("no target aspect configured; clips keep their source framing")
		return pc.SetProgress(75), nil
	}
	if len(pc.Clips) == 0 {
		return pc, services.Wrap(services.ErrValidation, "reframe", "validate", "no clips to reframe", nil)
	}

	updated := make([]pipeline.Clip, len(pc.Clips))
	copy(updated, pc.Clips)
	reframed := 0
	for i, clip := range updated {
		if s.matchesTarget(ctx, logger, clip.Path, target) {
			logger.Debug("clip already matches target aspect", logging.String("clip", filepath.Base(clip.Path)))
			continue
		}
		output := withSuffix(clip.Path, "-reframed")
		result, err := s.reframer.Reframe(ctx, clip.Path, output, target, nil)
		if err != nil {
			return pc, services.Wrap(
				services.ErrExternalTool,
				"reframe",
				"center crop",
				fmt.Sprintf("ffmpeg failed reframing %s", filepath.Base(clip.Path)),
				err,
			)
		}
		updated[i].Path = result.OutputPath
		reframed++
		pc = pc.SetProgress(60 + 15*float64(i+1)/float64(len(updated)))
	}

	pc.Clips = updated
	pc = pc.SetProgress(75)
	logger.Info(
		"reframing completed",
		logging.Int("clips", len(updated)),
		logging.Int("reframed", reframed),
		logging.String("aspect", target),
	)
	return pc, nil
}

// matchesTarget probes the clip and reports whether its pixel dimensions
// already sit at the target ratio. Probe failures report false so the
// reframe encode still runs; its crop expressions no-op on matching input.
func (s *Stage) matchesTarget(ctx context.Context, logger *slog.Logger, path, aspect string) bool {
	if s.probe == nil {
		return false
	}
	result, err := s.probe(ctx, path)
	if err != nil {
		logger.Warn("clip probe failed", logging.String("clip", filepath.Base(path)), logging.Error(err))
		return false
	}
	width, height := result.VideoResolution()
	return matchesAspect(width, height, aspect)
}

// matchesAspect compares dimensions against a "W:H" ratio by
// cross-multiplying, so 1080x1920 matches 9:16 without float wobble.
func matchesAspect(width, height int, aspect string) bool {
	ratioW, ratioH, ok := strings.Cut(aspect, ":")
	if !ok {
		return false
	}
	aw, err := strconv.Atoi(strings.TrimSpace(ratioW))
	if err != nil || aw <= 0 {
		return false
	}
	ah, err := strconv.Atoi(strings.TrimSpace(ratioH))
	if err != nil || ah <= 0 {
		return false
	}
	if width <= 0 || height <= 0 {
		return false
	}
	return width*ah == height*aw
}

// withSuffix inserts a suffix between a path's stem and extension.
func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

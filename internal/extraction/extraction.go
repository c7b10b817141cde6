package extraction

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"log/slog"

	"github.com/google/uuid"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
	"clipforge/internal/signals"
)

// ClipCutter is the ffmpeg surface this stage needs: segment extraction
// and thumbnail grabs.
type ClipCutter interface {
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Snapshot(ctx context.Context, input, output string, at float64) error
}

// Stage cuts one clip per fused moment out of the source VOD. Cuts run
// concurrently up to the configured limit; the clip list keeps moment
// order regardless of which cut finishes first.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
	cutter ClipCutter
}

var _ pipeline.Stage = (*Stage)(nil)

// New constructs the extraction stage with a real ffmpeg executor.
func New(cfg *config.Config, logger *slog.Logger) *Stage {
	return NewWithDependencies(cfg, logger, ffmpeg.NewExecutor(cfg.FFmpegBinary(), logger))
}

// NewWithDependencies allows injecting the cutter (used in tests).
func NewWithDependencies(cfg *config.Config, logger *slog.Logger, cutter ClipCutter) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "extraction"),
		cutter: cutter,
	}
}

func (s *Stage) Name() string { return "extract" }

func (s *Stage) Retryable() bool { return true }

func (s *Stage) MaxRetries() int { return s.cfg.Pipeline.MaxRetries }

// Execute cuts every moment into its own clip file under the job output
// directory and collects the clip records on the context.
func (s *Stage) Execute(ctx context.Context, pc pipeline.Context) (pipeline.Context, error) {
	logger := logging.WithContext(ctx, s.logger)

	if strings.TrimSpace(pc.VideoPath) == "" {
		return pc, services.Wrap(services.ErrValidation, "extract", "validate", "no downloaded video on the job", nil)
	}
	if len(pc.Moments) == 0 {
		return pc, services.Wrap(services.ErrValidation, "extract", "validate", "no moments to extract", nil)
	}

	concurrency := s.cfg.Pipeline.ExtractConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger.Info(
		"extracting clips",
		logging.Int("moments", len(pc.Moments)),
		logging.Int("concurrency", concurrency),
		logging.String("quality", s.cfg.Pipeline.ClipQuality),
	)

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	clips := make([]pipeline.Clip, len(pc.Moments))
	sem := make(chan struct{}, concurrency)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := range pc.Moments {
		wg.Add(1)
		go func(index int, moment signals.SignalMoment) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if workCtx.Err() != nil {
				return
			}
			clip, err := s.extractOne(workCtx, logger, pc, index, moment)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
				return
			}
			clips[index] = clip
		}(i, pc.Moments[i])
	}
	wg.Wait()
	if firstErr != nil {
		return pc, firstErr
	}

	pc.Clips = clips
	pc = pc.SetProgress(60)
	logger.Info("clip extraction completed", logging.Int("clips", len(clips)))
	return pc, nil
}

// extractOne cuts a single moment and grabs its thumbnail. The clip span
// mirrors the interval the fusion engine deduplicated on: pre-roll ahead
// of the detected timestamp, clamped at the start of the VOD.
func (s *Stage) extractOne(ctx context.Context, logger *slog.Logger, pc pipeline.Context, index int, moment signals.SignalMoment) (pipeline.Clip, error) {
	base := fmt.Sprintf("clip-%02d", index+1)
	output := filepath.Join(pc.OutputDir, base+".mp4")
	start := moment.Timestamp - s.cfg.Signals.Fusion.PreRoll
	if start < 0 {
		start = 0
	}

	opts := ffmpeg.ClipOptions{
		Start:    start,
		Duration: moment.Duration,
		Output:   output,
		Quality:  s.cfg.Pipeline.ClipQuality,
	}
	if err := s.cutter.ExtractClip(ctx, pc.VideoPath, opts); err != nil {
		return pipeline.Clip{}, services.Wrap(
			services.ErrExternalTool,
			"extract",
			"cut clip",
			fmt.Sprintf("ffmpeg failed cutting %s", base),
			err,
		)
	}

	thumbnail := filepath.Join(pc.OutputDir, base+".jpg")
	if err := s.cutter.Snapshot(ctx, pc.VideoPath, thumbnail, moment.Timestamp); err != nil {
		logger.Warn("thumbnail grab failed", logging.String("clip", base), logging.Error(err))
		thumbnail = ""
	}

	return pipeline.Clip{
		ID:            uuid.NewString(),
		Path:          output,
		ThumbnailPath: thumbnail,
		StartTime:     start,
		EndTime:       start + moment.Duration,
		Duration:      moment.Duration,
		Title:         moment.SuggestedTitle,
		Moment:        moment,
	}, nil
}

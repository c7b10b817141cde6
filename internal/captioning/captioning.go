package captioning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"clipforge/internal/config"
	langpkg "clipforge/internal/language"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
	"clipforge/internal/services/whisperx"
)

// CaptionMedia is the ffmpeg surface this stage needs: audio demux for
// transcription and subtitle burn-in.
type CaptionMedia interface {
	ExtractAudio(ctx context.Context, input, output string, format ffmpeg.AudioFormat, progress ffmpeg.ProgressFunc) error
	BurnSubtitles(ctx context.Context, input, subtitles, output string, progress ffmpeg.ProgressFunc) error
}

// Transcriber produces a word-timed transcript for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir, language string) (whisperx.Result, error)
}

// Stage burns word-grouped captions into each clip. Captioning is an
// enhancement: a disabled or unavailable transcriber passes clips through,
// and a clip whose transcription fails ships uncaptioned rather than
// failing the job.
type Stage struct {
	cfg         *config.Config
	logger      *slog.Logger
	media       CaptionMedia
	transcriber Transcriber
}

var _ pipeline.Stage = (*Stage)(nil)

// New constructs the captioning stage with real collaborators.
func New(cfg *config.Config, logger *slog.Logger) *Stage {
	service := whisperx.NewService(whisperx.Config{Model: cfg.Pipeline.WhisperModel})
	return NewWithDependencies(cfg, logger, ffmpeg.NewExecutor(cfg.FFmpegBinary(), logger), service)
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, logger *slog.Logger, media CaptionMedia, transcriber Transcriber) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "captioning"),
		media:       media,
		transcriber: transcriber,
	}
}

func (s *Stage) Name() string { return "caption" }

func (s *Stage) Retryable() bool { return true }

func (s *Stage) MaxRetries() int { return s.cfg.Pipeline.MaxRetries }

// Execute transcribes and captions each clip in order.
func (s *Stage) Execute(ctx context.Context, pc pipeline.Context) (pipeline.Context, error) {
	logger := logging.WithContext(ctx, s.logger)

	if !s.cfg.Pipeline.CaptionsEnabled {
		logger.Info("captions disabled; clips pass through")
		return pc.SetProgress(90), nil
	}
	if s.transcriber == nil {
		logger.Info("transcriber unavailable; clips pass through uncaptioned")
		return pc.SetProgress(90), nil
	}
	if lang := strings.TrimSpace(s.cfg.Pipeline.CaptionLanguage); lang != "" {
		logger.Debug("caption language pinned", logging.String("language", langpkg.DisplayName(lang)))
	}
	if len(pc.Clips) == 0 {
		return pc, services.Wrap(services.ErrValidation, "caption", "validate", "no clips to caption", nil)
	}
	if err := os.MkdirAll(pc.TempDir, 0o755); err != nil {
		return pc, services.Wrap(services.ErrTransient, "caption", "prepare", "could not create the caption scratch directory", err)
	}

	updated := make([]pipeline.Clip, len(pc.Clips))
	copy(updated, pc.Clips)
	captioned := 0
	for i, clip := range updated {
		base := strings.TrimSuffix(filepath.Base(clip.Path), filepath.Ext(clip.Path))

		audioPath := filepath.Join(pc.TempDir, base+".wav")
		if err := s.media.ExtractAudio(ctx, clip.Path, audioPath, ffmpeg.TranscriptionFormat(), nil); err != nil {
			return pc, services.Wrap(
				services.ErrExternalTool,
				"caption",
				"extract clip audio",
				fmt.Sprintf("ffmpeg failed demuxing audio from %s", filepath.Base(clip.Path)),
				err,
			)
		}

		result, err := s.transcriber.Transcribe(ctx, audioPath, pc.TempDir, s.cfg.Pipeline.CaptionLanguage)
		if err != nil {
			if ctx.Err() != nil {
				return pc, ctx.Err()
			}
			logger.Warn(
				"transcription failed; clip ships uncaptioned",
				logging.String("clip", filepath.Base(clip.Path)),
				logging.Error(err),
			)
			continue
		}
		cues := buildCues(result.Transcript)
		if len(cues) == 0 {
			logger.Debug("no speech detected in clip", logging.String("clip", filepath.Base(clip.Path)))
			continue
		}

		subtitlePath := filepath.Join(pc.TempDir, base+".ass")
		if err := writeASS(subtitlePath, cues); err != nil {
			return pc, services.Wrap(services.ErrTransient, "caption", "write subtitles", "could not write the caption script", err)
		}

		output := withSuffix(clip.Path, "-captioned")
		if err := s.media.BurnSubtitles(ctx, clip.Path, subtitlePath, output, nil); err != nil {
			return pc, services.Wrap(
				services.ErrExternalTool,
				"caption",
				"burn subtitles",
				fmt.Sprintf("ffmpeg failed burning captions into %s", filepath.Base(clip.Path)),
				err,
			)
		}
		updated[i].Path = output
		updated[i].SubtitlePath = subtitlePath
		captioned++
		pc = pc.SetProgress(75 + 15*float64(i+1)/float64(len(updated)))
	}

	pc.Clips = updated
	pc = pc.SetProgress(90)
	logger.Info("captioning completed", logging.Int("clips", len(updated)), logging.Int("captioned", captioned))
	return pc, nil
}

// withSuffix inserts a suffix between a path's stem and extension.
func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

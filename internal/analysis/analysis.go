package analysis

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"log/slog"

	"clipforge/internal/chatlog"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
	"clipforge/internal/signals"
	"clipforge/internal/signals/audio"
	"clipforge/internal/signals/chat"
	"clipforge/internal/signals/fusion"
	"clipforge/internal/vodcache"
)

// MediaProcessor is the ffmpeg surface this stage needs: audio demux for
// level sampling and the sampling itself.
type MediaProcessor interface {
	ExtractAudio(ctx context.Context, input, output string, format ffmpeg.AudioFormat, progress ffmpeg.ProgressFunc) error
	SampleLevels(ctx context.Context, input string, windowSize float64) ([]signals.LevelSample, error)
}

// VODSource fetches chat history and viewer-made clips for a VOD. Both
// fetches return empty results rather than errors when the VOD has none.
type VODSource interface {
	FetchMessages(ctx context.Context, vodID string) ([]signals.ChatMessage, error)
	FetchViewerClips(ctx context.Context, vodID string) ([]signals.ViewerClip, error)
}

// Stage derives highlight moments from the downloaded VOD by fusing audio
// loudness, chat activity, and viewer clip signals.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
	media  MediaProcessor
	source VODSource
	cache  *vodcache.Cache

	audio  *audio.Analyzer
	chat   *chat.Analyzer
	fusion *fusion.Engine
}

var _ pipeline.Stage = (*Stage)(nil)

// New constructs the analysis stage with real collaborators. cache may be
// nil when VOD metadata caching is disabled.
func New(cfg *config.Config, logger *slog.Logger, cache *vodcache.Cache) *Stage {
	executor := ffmpeg.NewExecutor(cfg.FFmpegBinary(), logger)
	opts := make([]chatlog.Option, 0, 2)
	if strings.TrimSpace(cfg.VOD.SourceAPIToken) != "" {
		opts = append(opts, chatlog.WithToken(cfg.VOD.SourceAPIToken))
	}
	if cfg.VOD.RequestTimeout > 0 {
		opts = append(opts, chatlog.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.VOD.RequestTimeout) * time.Second}))
	}
	source := chatlog.New(cfg.VOD.ChatSourceURL, cfg.VOD.ClipsSourceURL, opts...)
	return NewWithDependencies(cfg, logger, executor, source, cache)
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, logger *slog.Logger, media MediaProcessor, source VODSource, cache *vodcache.Cache) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	stageLogger := logging.NewComponentLogger(logger, "analysis")
	return &Stage{
		cfg:    cfg,
		logger: stageLogger,
		media:  media,
		source: source,
		cache:  cache,
		audio:  audio.New(audioConfig(cfg), logger),
		chat:   chat.New(chatConfig(cfg), logger),
		fusion: fusion.New(fusionConfig(cfg), logger),
	}
}

func (s *Stage) Name() string { return "analyze" }

func (s *Stage) Retryable() bool { return true }

func (s *Stage) MaxRetries() int { return s.cfg.Pipeline.MaxRetries }

// Execute samples the VOD audio, gathers chat and viewer-clip records, and
// fuses the three signal sources into the moment list later stages cut
// clips from. A VOD with no clip-worthy moments fails validation: there is
// nothing downstream stages could produce.
func (s *Stage) Execute(ctx context.Context, pc pipeline.Context) (pipeline.Context, error) {
	logger := logging.WithContext(ctx, s.logger)

	if strings.TrimSpace(pc.VideoPath) == "" {
		return pc, services.Wrap(services.ErrValidation, "analyze", "validate", "no downloaded video on the job", nil)
	}
	if _, err := os.Stat(pc.VideoPath); err != nil {
		return pc, services.Wrap(services.ErrValidation, "analyze", "validate", "downloaded video is missing from the work directory", err)
	}

	pc, err := s.ensureAudio(ctx, logger, pc)
	if err != nil {
		return pc, err
	}
	pc = pc.SetProgress(25)

	samples, err := s.media.SampleLevels(ctx, pc.AudioPath, s.cfg.Signals.Audio.WindowSize)
	if err != nil {
		return pc, services.Wrap(services.ErrExternalTool, "analyze", "sample levels", "ffmpeg loudness sampling failed", err)
	}
	audioMoments := s.audio.Analyze(samples)
	pc = pc.SetProgress(30)

	messages := s.fetchMessages(ctx, logger, pc.VODID)
	viewerClips := s.fetchViewerClips(ctx, logger, pc.VODID)
	chatMoments := s.chat.Analyze(messages)
	pc = pc.SetProgress(35)

	moments := s.fusion.Fuse(chatMoments, audioMoments, viewerClips)
	moments = capMoments(moments, s.cfg.Signals.Fusion.MaxClips)
	if len(moments) == 0 {
		return pc, services.Wrap(
			services.ErrValidation,
			"analyze",
			"fuse signals",
			"no clip-worthy moments detected in this VOD",
			nil,
		)
	}

	pc.Moments = moments
	pc = pc.SetProgress(40)
	logger.Info(
		"signal analysis completed",
		logging.Int("level_samples", len(samples)),
		logging.Int("audio_moments", len(audioMoments)),
		logging.Int("chat_messages", len(messages)),
		logging.Int("chat_moments", len(chatMoments)),
		logging.Int("viewer_clips", len(viewerClips)),
		logging.Int("moments", len(moments)),
	)
	return pc, nil
}

// ensureAudio demuxes the VOD audio track once per job. A resumed run that
// already produced the track reuses it.
func (s *Stage) ensureAudio(ctx context.Context, logger *slog.Logger, pc pipeline.Context) (pipeline.Context, error) {
	if pc.AudioPath != "" {
		if _, err := os.Stat(pc.AudioPath); err == nil {
			logger.Debug("reusing extracted audio", logging.String("audio_path", pc.AudioPath))
			return pc, nil
		}
	}
	audioPath := filepath.Join(pc.WorkDir, "audio.wav")
	if err := s.media.ExtractAudio(ctx, pc.VideoPath, audioPath, ffmpeg.TranscriptionFormat(), nil); err != nil {
		return pc, services.Wrap(services.ErrExternalTool, "analyze", "extract audio", "ffmpeg audio extraction failed", err)
	}
	pc.AudioPath = audioPath
	pc = pc.RegisterCleanup(audioPath)
	return pc, nil
}

// fetchMessages returns the chat log for the VOD, consulting the cache
// first. Source failures degrade to an empty log: audio and viewer-clip
// signals still produce moments on their own.
func (s *Stage) fetchMessages(ctx context.Context, logger *slog.Logger, vodID string) []signals.ChatMessage {
	if strings.TrimSpace(vodID) == "" || s.source == nil {
		return nil
	}
	if s.cache.Enabled() {
		if messages, ok, err := s.cache.GetMessages(vodID); err != nil {
			logger.Warn("chat cache read failed", logging.Error(err))
		} else if ok {
			logger.Debug("chat log served from cache", logging.Int("messages", len(messages)))
			return messages
		}
	}
	messages, err := s.source.FetchMessages(ctx, vodID)
	if err != nil {
		logger.Warn("chat log fetch failed; continuing without chat signals", logging.Error(err))
		return nil
	}
	if s.cache.Enabled() && len(messages) > 0 {
		if err := s.cache.PutMessages(vodID, messages); err != nil {
			logger.Warn("chat cache write failed", logging.Error(err))
		}
	}
	return messages
}

// fetchViewerClips mirrors fetchMessages for viewer-made clip records.
func (s *Stage) fetchViewerClips(ctx context.Context, logger *slog.Logger, vodID string) []signals.ViewerClip {
	if strings.TrimSpace(vodID) == "" || s.source == nil {
		return nil
	}
	if s.cache.Enabled() {
		if clips, ok, err := s.cache.GetClips(vodID); err != nil {
			logger.Warn("clip cache read failed", logging.Error(err))
		} else if ok {
			logger.Debug("viewer clips served from cache", logging.Int("clips", len(clips)))
			return clips
		}
	}
	clips, err := s.source.FetchViewerClips(ctx, vodID)
	if err != nil {
		logger.Warn("viewer clip fetch failed; continuing without clip signals", logging.Error(err))
		return nil
	}
	if s.cache.Enabled() && len(clips) > 0 {
		if err := s.cache.PutClips(vodID, clips); err != nil {
			logger.Warn("clip cache write failed", logging.Error(err))
		}
	}
	return clips
}

// capMoments keeps the highest-scoring limit moments and restores
// timestamp order.
func capMoments(moments []signals.SignalMoment, limit int) []signals.SignalMoment {
	if limit <= 0 || len(moments) <= limit {
		return moments
	}
	ranked := append([]signals.SignalMoment(nil), moments...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	ranked = ranked[:limit]
	signals.SortMomentsByTimestamp(ranked)
	return ranked
}

func audioConfig(cfg *config.Config) audio.Config {
	return audio.Config{
		WindowSize:       cfg.Signals.Audio.WindowSize,
		PeakThreshold:    cfg.Signals.Audio.PeakThreshold,
		SilenceThreshold: cfg.Signals.Audio.SilenceThreshold,
		MinGap:           cfg.Signals.Audio.MinGap,
	}
}

func chatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		WindowSize:  cfg.Signals.Chat.WindowSize,
		StepSize:    cfg.Signals.Chat.StepSize,
		MinVelocity: cfg.Signals.Chat.MinVelocity,
		EmoteWeight: cfg.Signals.Chat.EmoteWeight,
	}
}

func fusionConfig(cfg *config.Config) fusion.Config {
	return fusion.Config{
		Weights: fusion.Weights{
			Chat:  cfg.Signals.Fusion.ChatWeight,
			Audio: cfg.Signals.Fusion.AudioWeight,
			Clips: cfg.Signals.Fusion.ClipsWeight,
		},
		PreRoll:           cfg.Signals.Fusion.PreRoll,
		PostRoll:          cfg.Signals.Fusion.PostRoll,
		MinDuration:       cfg.Signals.Fusion.MinDuration,
		MaxDuration:       cfg.Signals.Fusion.MaxDuration,
		MinScore:          cfg.Signals.Fusion.MinScore,
		ConvergenceBonus:  cfg.Signals.Fusion.ConvergenceBonus,
		ConvergenceWindow: cfg.Signals.Fusion.ConvergenceWindow,
	}
}

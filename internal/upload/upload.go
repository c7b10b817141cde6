package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"log/slog"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
	"clipforge/internal/storage"
)

// Stage publishes finished clips into the library, recording the stored
// path and public URL on each clip record.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Store
}

var _ pipeline.Stage = (*Stage)(nil)

// New constructs the upload stage backed by the filesystem library.
func New(cfg *config.Config, logger *slog.Logger) *Stage {
	library, err := storage.NewLibrary(cfg.Paths.LibraryDir, cfg.Pipeline.PublicBaseURL, logger)
	if err != nil {
		if logger != nil {
			logger.Warn("clip library unavailable", logging.Error(err))
		}
		return NewWithDependencies(cfg, logger, nil)
	}
	return NewWithDependencies(cfg, logger, library)
}

// NewWithDependencies allows injecting the store (used in tests).
func NewWithDependencies(cfg *config.Config, logger *slog.Logger, store storage.Store) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "upload"),
		store:  store,
	}
}

func (s *Stage) Name() string { return "upload" }

func (s *Stage) Retryable() bool { return true }

func (s *Stage) MaxRetries() int { return s.cfg.Pipeline.MaxRetries }

// Execute stores every clip and its thumbnail under a per-VOD library
// prefix, then drops the job scratch directory: once the library copies
// exist they are the canonical artifacts.
func (s *Stage) Execute(ctx context.Context, pc pipeline.Context) (pipeline.Context, error) {
	logger := logging.WithContext(ctx, s.logger)

	if len(pc.Clips) == 0 {
		return pc, services.Wrap(services.ErrValidation, "upload", "validate", "no clips to publish", nil)
	}
	if s.store == nil {
		return pc, services.Wrap(services.ErrConfiguration, "upload", "validate", "clip library not configured; set library_dir", nil)
	}

	prefix := strings.TrimSpace(pc.VODID)
	if prefix == "" {
		prefix = fmt.Sprintf("job-%d", pc.JobID)
	}
	prefix = storage.Slug(prefix)

	updated := make([]pipeline.Clip, len(pc.Clips))
	copy(updated, pc.Clips)
	for i, clip := range updated {
		name := fmt.Sprintf("%02d-%s", i+1, storage.Slug(clip.Title))
		object, err := s.store.Put(ctx, clip.Path, path.Join(prefix, name+".mp4"))
		if err != nil {
			return pc, services.Wrap(
				services.ErrTransient,
				"upload",
				"store clip",
				fmt.Sprintf("could not publish %s to the library", filepath.Base(clip.Path)),
				err,
			)
		}
		updated[i].StoredPath = object.Path
		updated[i].PublicURL = object.URL

		if clip.ThumbnailPath != "" {
			thumb, err := s.store.Put(ctx, clip.ThumbnailPath, path.Join(prefix, name+".jpg"))
			if err != nil {
				logger.Warn("thumbnail publish failed", logging.String("clip", name), logging.Error(err))
			} else {
				updated[i].ThumbnailPath = thumb.Path
			}
		}
		pc = pc.SetProgress(90 + 10*float64(i+1)/float64(len(updated)))
	}
	pc.Clips = updated

	// The scratch tree holds per-clip audio and subtitle intermediates;
	// published jobs no longer need it.
	if err := os.RemoveAll(pc.TempDir); err != nil {
		logger.Warn("scratch cleanup failed", logging.String("temp_dir", pc.TempDir), logging.Error(err))
	}
	remaining := make([]string, 0, len(pc.FilesToCleanup))
	for _, p := range pc.FilesToCleanup {
		if p == pc.TempDir {
			continue
		}
		remaining = append(remaining, p)
	}
	pc.FilesToCleanup = remaining

	pc = pc.SetProgress(100)
	logger.Info(
		"clips published",
		logging.Int("clips", len(updated)),
		logging.String("prefix", prefix),
	)
	return pc, nil
}

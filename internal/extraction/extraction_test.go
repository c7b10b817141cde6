package extraction_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipforge/internal/extraction"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
	"clipforge/internal/signals"
	"clipforge/internal/testsupport"
)

type fakeCutter struct {
	mu      sync.Mutex
	cuts    []ffmpeg.ClipOptions
	snaps   []float64
	cutErr  error
	snapErr error
	delay   time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *fakeCutter) ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error {
	current := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		observed := f.maxInflight.Load()
		if current <= observed || f.maxInflight.CompareAndSwap(observed, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.cutErr != nil {
		return f.cutErr
	}
	f.mu.Lock()
	f.cuts = append(f.cuts, opts)
	f.mu.Unlock()
	return os.WriteFile(opts.Output, []byte("clip-bytes"), 0o644)
}

func (f *fakeCutter) Snapshot(ctx context.Context, input, output string, at float64) error {
	if f.snapErr != nil {
		return f.snapErr
	}
	f.mu.Lock()
	f.snaps = append(f.snaps, at)
	f.mu.Unlock()
	return os.WriteFile(output, []byte("jpeg-bytes"), 0o644)
}

func newStageContext(t *testing.T, moments ...signals.SignalMoment) pipeline.Context {
	t.Helper()
	work := t.TempDir()
	videoPath := filepath.Join(work, "vod123.mp4")
	if err := os.WriteFile(videoPath, []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	outputDir := filepath.Join(work, "output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return pipeline.Context{
		JobID:     7,
		VODID:     "vod123",
		WorkDir:   work,
		TempDir:   filepath.Join(work, "tmp"),
		OutputDir: outputDir,
		VideoPath: videoPath,
		Moments:   moments,
		Progress:  40,
	}
}

func momentAt(ts float64, title string) signals.SignalMoment {
	return signals.SignalMoment{
		Timestamp:      ts,
		Duration:       20,
		Score:          80,
		Confidence:     0.667,
		SuggestedTitle: title,
	}
}

func TestStageIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stage := extraction.NewWithDependencies(cfg, nil, &fakeCutter{})
	if got := stage.Name(); got != "extract" {
		t.Fatalf("Name() = %q", got)
	}
	if !stage.Retryable() {
		t.Fatal("expected extraction stage to be retryable")
	}
}

func TestExecuteCutsEveryMoment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cutter := &fakeCutter{}
	stage := extraction.NewWithDependencies(cfg, nil, cutter)

	pc := newStageContext(t, momentAt(30, "THE play"), momentAt(90, "insane clutch"), momentAt(150, ""))
	pc, err := stage.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(pc.Clips) != 3 {
		t.Fatalf("got %d clips, want 3", len(pc.Clips))
	}

	preRoll := cfg.Signals.Fusion.PreRoll
	seen := map[string]bool{}
	for i, clip := range pc.Clips {
		if clip.ID == "" || seen[clip.ID] {
			t.Fatalf("clip %d has missing or duplicate id %q", i, clip.ID)
		}
		seen[clip.ID] = true
		wantStart := pc.Moments[i].Timestamp - preRoll
		if clip.StartTime != wantStart {
			t.Fatalf("clip %d start = %v, want %v", i, clip.StartTime, wantStart)
		}
		if clip.EndTime != wantStart+pc.Moments[i].Duration {
			t.Fatalf("clip %d end = %v", i, clip.EndTime)
		}
		if clip.Title != pc.Moments[i].SuggestedTitle {
			t.Fatalf("clip %d title = %q", i, clip.Title)
		}
		if _, err := os.Stat(clip.Path); err != nil {
			t.Fatalf("clip %d file missing: %v", i, err)
		}
		if _, err := os.Stat(clip.ThumbnailPath); err != nil {
			t.Fatalf("clip %d thumbnail missing: %v", i, err)
		}
	}
	if filepath.Base(pc.Clips[0].Path) != "clip-01.mp4" {
		t.Fatalf("first clip named %q", filepath.Base(pc.Clips[0].Path))
	}
	if pc.Progress != 60 {
		t.Fatalf("Progress = %v, want 60", pc.Progress)
	}

	for _, opts := range cutter.cuts {
		if opts.Quality != cfg.Pipeline.ClipQuality {
			t.Fatalf("cut quality = %q, want %q", opts.Quality, cfg.Pipeline.ClipQuality)
		}
	}
}

func TestExecuteClampsEarlyMoments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stage := extraction.NewWithDependencies(cfg, nil, &fakeCutter{})

	pc := newStageContext(t, momentAt(2, "cold open"))
	pc, err := stage.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if pc.Clips[0].StartTime != 0 {
		t.Fatalf("start = %v, want 0", pc.Clips[0].StartTime)
	}
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.ExtractConcurrency = 2
	cutter := &fakeCutter{delay: 20 * time.Millisecond}
	stage := extraction.NewWithDependencies(cfg, nil, cutter)

	pc := newStageContext(t,
		momentAt(30, "a"), momentAt(90, "b"), momentAt(150, "c"), momentAt(210, "d"), momentAt(270, "e"))
	if _, err := stage.Execute(context.Background(), pc); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := cutter.maxInflight.Load(); got > 2 {
		t.Fatalf("observed %d concurrent cuts, limit is 2", got)
	}
}

func TestExecuteStopsOnFirstFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cutter := &fakeCutter{cutErr: errors.New("encoder crashed")}
	stage := extraction.NewWithDependencies(cfg, nil, cutter)

	pc := newStageContext(t, momentAt(30, "a"), momentAt(90, "b"))
	_, err := stage.Execute(context.Background(), pc)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatal("extraction failures should be retryable")
	}
}

func TestExecuteRequiresMoments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stage := extraction.NewWithDependencies(cfg, nil, &fakeCutter{})

	pc := newStageContext(t)
	if _, err := stage.Execute(context.Background(), pc); !services.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteToleratesThumbnailFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cutter := &fakeCutter{snapErr: errors.New("no keyframe")}
	stage := extraction.NewWithDependencies(cfg, nil, cutter)

	pc := newStageContext(t, momentAt(30, "THE play"))
	pc, err := stage.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if pc.Clips[0].ThumbnailPath != "" {
		t.Fatalf("thumbnail path = %q, want empty", pc.Clips[0].ThumbnailPath)
	}
}

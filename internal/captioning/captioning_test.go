package captioning_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/captioning"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
	"clipforge/internal/services/whisperx"
	"clipforge/internal/testsupport"
)

type fakeCaptionMedia struct {
	extractErr error
	burnErr    error

	extractCalls int
	burnCalls    int
}

func (f *fakeCaptionMedia) ExtractAudio(ctx context.Context, input, output string, format ffmpeg.AudioFormat, progress ffmpeg.ProgressFunc) error {
	f.extractCalls++
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(output, []byte("wav-bytes"), 0o644)
}

func (f *fakeCaptionMedia) BurnSubtitles(ctx context.Context, input, subtitles, output string, progress ffmpeg.ProgressFunc) error {
	f.burnCalls++
	if f.burnErr != nil {
		return f.burnErr
	}
	if _, err := os.Stat(subtitles); err != nil {
		return err
	}
	return os.WriteFile(output, []byte("captioned-bytes"), 0o644)
}

type fakeTranscriber struct {
	err     error
	empty   bool
	calls   int
	sources []string
	langs   []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, source, outputDir, language string) (whisperx.Result, error) {
	f.calls++
	f.sources = append(f.sources, source)
	f.langs = append(f.langs, language)
	if f.err != nil {
		return whisperx.Result{}, f.err
	}
	if f.empty {
		return whisperx.Result{}, nil
	}
	return whisperx.Result{
		Transcript: whisperx.Transcript{
			Language: "en",
			Segments: []whisperx.Segment{{
				Text:  "That was insane",
				Start: 0.4,
				End:   1.8,
				Words: []whisperx.Word{
					{Word: "That", Start: 0.4, End: 0.7, Score: 0.98},
					{Word: "was", Start: 0.7, End: 0.9, Score: 0.95},
					{Word: "insane", Start: 0.9, End: 1.6, Score: 0.97},
				},
			}},
		},
	}, nil
}

func newStageContext(t *testing.T, clipNames ...string) pipeline.Context {
	t.Helper()
	work := t.TempDir()
	outputDir := filepath.Join(work, "output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	pc := pipeline.Context{
		JobID:     7,
		WorkDir:   work,
		TempDir:   filepath.Join(work, "tmp"),
		OutputDir: outputDir,
		Progress:  75,
	}
	for _, name := range clipNames {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte("clip-bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
		pc.Clips = append(pc.Clips, pipeline.Clip{ID: name, Path: path, Duration: 20})
	}
	return pc
}

func TestStageIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stage := captioning.NewWithDependencies(cfg, nil, &fakeCaptionMedia{}, &fakeTranscriber{})
	if got := stage.Name(); got != "caption" {
		t.Fatalf("Name() = %q", got)
	}
	if !stage.Retryable() {
		t.Fatal("expected captioning stage to be retryable")
	}
}

func TestExecuteCaptionsClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.CaptionLanguage = "en"
	media := &fakeCaptionMedia{}
	transcriber := &fakeTranscriber{}
	stage := captioning.NewWithDependencies(cfg, nil, media, transcriber)

	pc := newStageContext(t, "clip-01-reframed.mp4", "clip-02-reframed.mp4")
	pc, err := stage.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if media.extractCalls != 2 || transcriber.calls != 2 || media.burnCalls != 2 {
		t.Fatalf("calls: extract=%d transcribe=%d burn=%d", media.extractCalls, transcriber.calls, media.burnCalls)
	}
	for _, lang := range transcriber.langs {
		if lang != "en" {
			t.Fatalf("language = %q, want en", lang)
		}
	}
	clip := pc.Clips[0]
	if filepath.Base(clip.Path) != "clip-01-reframed-captioned.mp4" {
		t.Fatalf("clip path = %q", clip.Path)
	}
	if _, err := os.Stat(clip.Path); err != nil {
		t.Fatalf("captioned file missing: %v", err)
	}
	if clip.SubtitlePath == "" {
		t.Fatal("subtitle path not recorded")
	}
	data, err := os.ReadFile(clip.SubtitlePath)
	if err != nil {
		t.Fatalf("subtitle script missing: %v", err)
	}
	if !strings.Contains(string(data), "Dialogue:") || !strings.Contains(string(data), "That was insane") {
		t.Fatalf("unexpected subtitle script:\n%s", data)
	}
	if pc.Progress != 90 {
		t.Fatalf("Progress = %v, want 90", pc.Progress)
	}
}

func TestExecuteSkipsWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.CaptionsEnabled = false
	transcriber := &fakeTranscriber{}
	stage := captioning.NewWithDependencies(cfg, nil, &fakeCaptionMedia{}, transcriber)

	pc := newStageContext(t, "clip-01.mp4")
	original := pc.Clips[0].Path
	pc, err := stage.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if transcriber.calls != 0 {
		t.Fatal("transcriber should not run when captions are disabled")
	}
	if pc.Clips[0].Path != original {
		t.Fatal("clip path should be unchanged")
	}
	if pc.Progress != 90 {
		t.Fatalf("Progress = %v, want 90", pc.Progress)
	}
}

func TestExecuteSkipsWithoutTranscriber(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stage := captioning.NewWithDependencies(cfg, nil, &fakeCaptionMedia{}, nil)

	pc, err := stage.Execute(context.Background(), newStageContext(t, "clip-01.mp4"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if pc.Progress != 90 {
		t.Fatalf("Progress = %v, want 90", pc.Progress)
	}
}

func TestExecuteToleratesTranscriptionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	media := &fakeCaptionMedia{}
	transcriber := &fakeTranscriber{err: errors.New("uvx not installed")}
	stage := captioning.NewWithDependencies(cfg, nil, media, transcriber)

	pc := newStageContext(t, "clip-01.mp4")
	original := pc.Clips[0].Path
	pc, err := stage.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if pc.Clips[0].Path != original {
		t.Fatal("failed transcription should leave the clip uncaptioned")
	}
	if media.burnCalls != 0 {
		t.Fatal("burn should not run without a transcript")
	}
}

func TestExecuteSkipsSilentClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	media := &fakeCaptionMedia{}
	stage := captioning.NewWithDependencies(cfg, nil, media, &fakeTranscriber{empty: true})

	pc := newStageContext(t, "clip-01.mp4")
	pc, err := stage.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if media.burnCalls != 0 {
		t.Fatal("silent clip should not be burned")
	}
	if pc.Clips[0].SubtitlePath != "" {
		t.Fatal("silent clip should have no subtitle path")
	}
}

func TestExecuteRequiresClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stage := captioning.NewWithDependencies(cfg, nil, &fakeCaptionMedia{}, &fakeTranscriber{})

	if _, err := stage.Execute(context.Background(), newStageContext(t)); !services.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteWrapsAudioExtractionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	media := &fakeCaptionMedia{extractErr: errors.New("demux failed")}
	stage := captioning.NewWithDependencies(cfg, nil, media, &fakeTranscriber{})

	_, err := stage.Execute(context.Background(), newStageContext(t, "clip-01.mp4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestExecuteWrapsBurnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	media := &fakeCaptionMedia{burnErr: errors.New("subtitles filter error")}
	stage := captioning.NewWithDependencies(cfg, nil, media, &fakeTranscriber{})

	_, err := stage.Execute(context.Background(), newStageContext(t, "clip-01.mp4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

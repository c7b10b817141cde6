package ffmpeg

import (
	"context"
	"fmt"

	"clipforge/internal/logging"
)

// Clip quality presets. Source copies the stream without re-encoding; high
// and medium re-encode with progressively smaller outputs.
const (
	QualitySource = "source"
	QualityHigh   = "high"
	QualityMedium = "medium"
)

// ClipOptions defines one highlight extraction.
type ClipOptions struct {
	Start    float64
	Duration float64
	Output   string
	Quality  string
	Progress ProgressFunc
}

// ExtractClip cuts a segment out of the source video. The seek rides before
// the input so long VODs do not decode from the start.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("invalid clip duration %f: must be positive", opts.Duration)
	}
	if opts.Output == "" {
		return fmt.Errorf("clip output path required")
	}

	e.logger.Info("extracting clip",
		logging.String("input", input),
		logging.String("output", opts.Output),
		logging.Float64("start", opts.Start),
		logging.Float64("duration", opts.Duration),
		logging.String("quality", opts.Quality),
	)

	args := []string{
		"-ss", formatSeconds(opts.Start),
		"-i", input,
		"-t", formatSeconds(opts.Duration),
	}
	args = append(args, qualityArgs(opts.Quality)...)
	args = append(args, "-movflags", "+faststart", opts.Output)

	if err := e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: opts.Progress,
		LogHandler: func(line string) {
			e.logger.Debug("clip extraction", logging.String("ffmpeg", line))
		},
	}); err != nil {
		return fmt.Errorf("extract clip: %w", err)
	}
	return nil
}

// Snapshot grabs a single frame as a thumbnail image.
func (e *Executor) Snapshot(ctx context.Context, input, output string, at float64) error {
	if output == "" {
		return fmt.Errorf("snapshot output path required")
	}

	args := []string{
		"-ss", formatSeconds(at),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		output,
	}
	if err := e.Run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug("snapshot", logging.String("ffmpeg", line))
		},
	}); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

func qualityArgs(quality string) []string {
	switch quality {
	case QualitySource:
		return []string{"-c", "copy"}
	case QualityMedium:
		return []string{
			"-c:v", DefaultVideoCodec,
			"-crf", "23",
			"-preset", "fast",
			"-c:a", DefaultAudioCodec,
			"-b:a", "128k",
		}
	default:
		return []string{
			"-c:v", DefaultVideoCodec,
			"-crf", fmt.Sprintf("%d", DefaultCRF),
			"-preset", DefaultPreset,
			"-c:a", DefaultAudioCodec,
			"-b:a", "192k",
		}
	}
}

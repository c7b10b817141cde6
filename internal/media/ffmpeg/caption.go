package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"clipforge/internal/logging"
)

// BurnSubtitles renders a subtitle file into the video stream.
func (e *Executor) BurnSubtitles(ctx context.Context, input, subtitles, output string, progress ProgressFunc) error {
	if subtitles == "" {
		return fmt.Errorf("subtitle path required")
	}
	if output == "" {
		return fmt.Errorf("caption output path required")
	}

	e.logger.Info("burning subtitles",
		logging.String("input", input),
		logging.String("subtitles", subtitles),
		logging.String("output", output),
	)

	filter := NewFilterBuilder().
		Custom("subtitles=" + escapeFilterPath(subtitles)).
		Build()

	args := []string{
		"-i", input,
		"-vf", filter,
		"-c:v", DefaultVideoCodec,
		"-crf", fmt.Sprintf("%d", DefaultCRF),
		"-preset", DefaultPreset,
		"-c:a", "copy",
		"-movflags", "+faststart",
		output,
	}

	if err := e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: progress,
		LogHandler: func(line string) {
			e.logger.Debug("subtitle burn", logging.String("ffmpeg", line))
		},
	}); err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}
	return nil
}

// escapeFilterPath escapes a file path for use inside an ffmpeg filter
// argument, where colons and quotes are structural.
func escapeFilterPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	escaped := strings.ReplaceAll(abs, ":", "\\:")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")
	return escaped
}

package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/logging"
)

// ReframeResult records how a clip was converted to the target aspect.
type ReframeResult struct {
	OutputPath string
	Method     string
}

// Reframe converts a clip to the target aspect ratio with a centered crop.
// The crop expressions clamp against the source dimensions, so inputs
// already narrower than the target pass through uncropped.
func (e *Executor) Reframe(ctx context.Context, input, output, targetAspect string, progress ProgressFunc) (ReframeResult, error) {
	w, h, err := parseAspect(targetAspect)
	if err != nil {
		return ReframeResult{}, err
	}

	e.logger.Info("reframing clip",
		logging.String("input", input),
		logging.String("output", output),
		logging.String("aspect", targetAspect),
	)

	filter := NewFilterBuilder().
		Custom(fmt.Sprintf("crop=min(iw\\,ih*%d/%d):min(ih\\,iw*%d/%d)", w, h, h, w)).
		Custom("scale=trunc(iw/2)*2:trunc(ih/2)*2").
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
			e.logger.Debug("reframe", logging.String("ffmpeg", line))
		},
	}); err != nil {
		return ReframeResult{}, fmt.Errorf("reframe: %w", err)
	}

	return ReframeResult{OutputPath: output, Method: "center_crop"}, nil
}

// parseAspect splits a "W:H" ratio into its integer parts.
func parseAspect(aspect string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(aspect), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid aspect ratio %q: expected W:H", aspect)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid aspect width %q", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid aspect height %q", parts[1])
	}
	return w, h, nil
}

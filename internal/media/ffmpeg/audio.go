package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"clipforge/internal/logging"
	"clipforge/internal/signals"
)

// levelSampleRate is the rate loudness sampling resamples to. It matches
// the transcription format so the same WAV serves both consumers.
const levelSampleRate = 16000

// AudioFormat defines audio extraction parameters.
type AudioFormat struct {
	Codec      string
	SampleRate int
	Channels   int
}

// TranscriptionFormat returns the extraction format both the level sampler
// and WhisperX expect: 16 kHz mono PCM.
func TranscriptionFormat() AudioFormat {
	return AudioFormat{Codec: "pcm_s16le", SampleRate: levelSampleRate, Channels: 1}
}

// ExtractAudio pulls the audio stream out of a video into a standalone file.
func (e *Executor) ExtractAudio(ctx context.Context, input, output string, format AudioFormat, progress ProgressFunc) error {
	e.logger.Info("extracting audio",
		logging.String("input", input),
		logging.String("output", output),
		logging.String("codec", format.Codec),
	)

	args := []string{
		"-i", input,
		"-vn",
		"-acodec", format.Codec,
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		output,
	}

	if err := e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: progress,
		LogHandler: func(line string) {
			e.logger.Debug("audio extraction", logging.String("ffmpeg", line))
		},
	}); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	return nil
}

// SampleLevels measures loudness over fixed windows across the whole file,
// producing the time series the audio analyzer consumes. Each window yields
// one sample with peak amplitude and RMS converted from dBFS to linear.
func (e *Executor) SampleLevels(ctx context.Context, input string, windowSize float64) ([]signals.LevelSample, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %f", windowSize)
	}

	samplesPerWindow := int(math.Round(windowSize * levelSampleRate))
	filter := fmt.Sprintf(
		"aresample=%d,asetnsamples=n=%d,astats=metadata=1:reset=1,ametadata=mode=print:file=-",
		levelSampleRate, samplesPerWindow,
	)

	var buf bytes.Buffer
	var mu sync.Mutex
	err := e.Run(ctx, RunOptions{
		Args: []string{
			"-i", input,
			"-vn",
			"-af", filter,
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			buf.WriteString(line)
			buf.WriteByte('\n')
			mu.Unlock()
		},
	})

	mu.Lock()
	output := buf.String()
	mu.Unlock()

	samples := parseLevelOutput(output)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// ffmpeg sometimes exits non-zero on null-muxer runs even after
		// producing every stats block; trust the parsed output when present.
		if len(samples) == 0 {
			return nil, fmt.Errorf("sample levels: %w", err)
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("sample levels: no astats output for %s", input)
	}
	return samples, nil
}

// parseLevelOutput walks ametadata print blocks and emits one sample per
// frame header once its peak and RMS lines have been seen.
func parseLevelOutput(output string) []signals.LevelSample {
	var samples []signals.LevelSample

	var (
		timestamp float64
		peakDB    float64
		rmsDB     float64
		havePeak  bool
		haveRMS   bool
	)
	flush := func() {
		if havePeak || haveRMS {
			samples = append(samples, signals.LevelSample{
				Timestamp: timestamp,
				Amplitude: dbToLinear(peakDB, havePeak),
				RMS:       dbToLinear(rmsDB, haveRMS),
			})
		}
		havePeak = false
		haveRMS = false
	}

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "frame:"):
			flush()
			if idx := strings.Index(line, "pts_time:"); idx >= 0 {
				value := strings.TrimSpace(line[idx+len("pts_time:"):])
				timestamp, _ = strconv.ParseFloat(value, 64)
			}
		case strings.Contains(line, "Overall.Peak_level="):
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				if v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
					peakDB = v
					havePeak = true
				}
			}
		case strings.Contains(line, "Overall.RMS_level="):
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				if v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
					rmsDB = v
					haveRMS = true
				}
			}
		}
	}
	flush()
	return samples
}

// dbToLinear converts a dBFS level to a linear [0,1] value. Digital silence
// prints "-inf", which parses to -Inf and collapses to 0 here.
func dbToLinear(db float64, present bool) float64 {
	if !present {
		return 0
	}
	linear := math.Pow(10, db/20)
	if linear > 1 {
		linear = 1
	}
	if linear < 0 || math.IsNaN(linear) {
		linear = 0
	}
	return linear
}

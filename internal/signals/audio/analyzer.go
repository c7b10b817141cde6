package audio

import (
	"log/slog"
	"math"
	"sort"

	"clipforge/internal/logging"
	"clipforge/internal/signals"
)

const (
	// lookaheadSamples bounds how far past a spike the analyzer scans when
	// deciding between a peak and a sustained event.
	lookaheadSamples = 10
	// sustainedMinCount is the lookahead hit count at which a spike is
	// reclassified as sustained.
	sustainedMinCount = 5
	// sustainedLevelRatio is the fraction of the adaptive threshold a
	// lookahead sample must stay above to count toward sustainedMinCount.
	sustainedLevelRatio = 0.7
	// silenceSpanMin is the minimum quiet-span length that arms a
	// silence-break detection.
	silenceSpanMin = 1.0
	// silenceBreakWindow is how soon after a quiet span ends a spike must
	// land to count as breaking that silence.
	silenceBreakWindow = 1.0
)

// Config controls audio moment detection. Thresholds are amplitudes in
// [0,1]; WindowSize and MinGap are seconds.
type Config struct {
	// WindowSize is the level-sampling window the input series was built
	// with. Carried for reporting; the analyzer itself works per sample.
	WindowSize float64
	// PeakThreshold is the floor for the adaptive threshold.
	PeakThreshold float64
	// SilenceThreshold is the amplitude below which a sample counts as quiet.
	SilenceThreshold float64
	// MinGap is the minimum spacing between emitted moments.
	MinGap float64
}

// DefaultConfig returns the detection settings used when the job supplies none.
func DefaultConfig() Config {
	return Config{
		WindowSize:       1.0,
		PeakThreshold:    0.6,
		SilenceThreshold: 0.05,
		MinGap:           10.0,
	}
}

// Analyzer turns a loudness time series into discrete audio moments.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs an analyzer. A nil logger disables logging.
func New(cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{cfg: cfg, logger: logging.NewComponentLogger(logger, "audio-analyzer")}
}

// Analyze walks the sample series in order and emits moments. Samples must
// be sorted by timestamp. Fewer than two samples yield no moments; there
// is no baseline to compare a lone sample against.
func (a *Analyzer) Analyze(samples []signals.LevelSample) []signals.AudioMoment {
	if len(samples) < 2 {
		return nil
	}

	threshold := a.adaptiveThreshold(samples)

	var moments []signals.AudioMoment
	lastEmitted := math.Inf(-1)

	// Quiet-span tracking for silence-break detection. A span arms the
	// detector once it exceeds silenceSpanMin; the armed window expires
	// silenceBreakWindow seconds after the span ends.
	inSilence := false
	silenceStart := 0.0
	armedUntil := math.Inf(-1)

	for i, sample := range samples {
		if sample.Amplitude < a.cfg.SilenceThreshold {
			if !inSilence {
				inSilence = true
				silenceStart = sample.Timestamp
			}
		} else if inSilence {
			inSilence = false
			if sample.Timestamp-silenceStart > silenceSpanMin {
				armedUntil = sample.Timestamp + silenceBreakWindow
			}
		}

		if sample.Amplitude <= threshold {
			continue
		}

		// Silence-break check runs before the peak check on the same
		// sample; both paths share the lastEmitted cursor so MinGap holds
		// across kinds.
		if sample.Timestamp <= armedUntil && sample.Timestamp-lastEmitted >= a.cfg.MinGap {
			moments = append(moments, signals.AudioMoment{
				Timestamp: sample.Timestamp,
				Amplitude: sample.Amplitude,
				RMSLevel:  sample.RMS,
				Score:     clampScore(sample.Amplitude/threshold*60 + 40),
				Kind:      signals.AudioSilenceBreak,
			})
			lastEmitted = sample.Timestamp
		}

		if sample.Timestamp-lastEmitted >= a.cfg.MinGap {
			sustained := a.countSustained(samples, i, threshold)
			kind := signals.AudioPeak
			if sustained >= sustainedMinCount {
				kind = signals.AudioSustained
			}
			moments = append(moments, signals.AudioMoment{
				Timestamp: sample.Timestamp,
				Amplitude: sample.Amplitude,
				RMSLevel:  sample.RMS,
				Score:     clampScore(sample.Amplitude/threshold*50 + float64(sustained)*5),
				Kind:      kind,
			})
			lastEmitted = sample.Timestamp
		}
	}

	a.logger.Debug("audio analysis complete",
		logging.Int("sample_count", len(samples)),
		logging.Int("moment_count", len(moments)),
		logging.Float64("adaptive_threshold", threshold),
	)
	return moments
}

// adaptiveThreshold scales the peak gate to the recording's overall level:
// three times the median amplitude, never below the configured floor.
func (a *Analyzer) adaptiveThreshold(samples []signals.LevelSample) float64 {
	amplitudes := make([]float64, len(samples))
	for i, s := range samples {
		amplitudes[i] = s.Amplitude
	}
	sort.Float64s(amplitudes)

	var median float64
	mid := len(amplitudes) / 2
	if len(amplitudes)%2 == 0 {
		median = (amplitudes[mid-1] + amplitudes[mid]) / 2
	} else {
		median = amplitudes[mid]
	}

	return math.Max(median*3, a.cfg.PeakThreshold)
}

// countSustained counts how many of the next lookaheadSamples samples stay
// above sustainedLevelRatio of the threshold.
func (a *Analyzer) countSustained(samples []signals.LevelSample, index int, threshold float64) int {
	floor := threshold * sustainedLevelRatio
	count := 0
	for j := index + 1; j < len(samples) && j <= index+lookaheadSamples; j++ {
		if samples[j].Amplitude > floor {
			count++
		}
	}
	return count
}

func clampScore(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

package audio

import (
	"math"
	"testing"

	"clipforge/internal/signals"
)

func testConfig() Config {
	return Config{
		WindowSize:       1.0,
		PeakThreshold:    0.6,
		SilenceThreshold: 0.05,
		MinGap:           3.0,
	}
}

func flatSeries(start, end, spacing, amplitude float64) []signals.LevelSample {
	var samples []signals.LevelSample
	for ts := start; ts <= end+1e-9; ts += spacing {
		samples = append(samples, signals.LevelSample{Timestamp: ts, Amplitude: amplitude, RMS: amplitude * 0.8})
	}
	return samples
}

func TestAnalyzeEmptyAndSingleSample(t *testing.T) {
	analyzer := New(testConfig(), nil)
	if moments := analyzer.Analyze(nil); len(moments) != 0 {
		t.Fatalf("expected no moments for empty input, got %d", len(moments))
	}
	single := []signals.LevelSample{{Timestamp: 0, Amplitude: 0.9}}
	if moments := analyzer.Analyze(single); len(moments) != 0 {
		t.Fatalf("expected no moments for single sample, got %d", len(moments))
	}
}

func TestAnalyzeDetectsIsolatedPeak(t *testing.T) {
	samples := flatSeries(0, 24, 1, 0.1)
	samples[12].Amplitude = 0.9

	analyzer := New(testConfig(), nil)
	moments := analyzer.Analyze(samples)

	if len(moments) != 1 {
		t.Fatalf("expected exactly one moment, got %d", len(moments))
	}
	m := moments[0]
	if m.Timestamp != 12 {
		t.Fatalf("expected moment at t=12, got t=%v", m.Timestamp)
	}
	if m.Kind != signals.AudioPeak {
		t.Fatalf("expected peak classification, got %q", m.Kind)
	}
	// Baseline 0.1 keeps the adaptive threshold at the 0.6 floor, so the
	// spike scores 0.9/0.6*50 with no sustained bonus.
	if math.Abs(m.Score-75) > 1e-9 {
		t.Fatalf("expected score 75, got %v", m.Score)
	}
}

func TestAnalyzeClassifiesSustainedLoudness(t *testing.T) {
	cfg := testConfig()
	cfg.MinGap = 10
	samples := flatSeries(0, 30, 1, 0.1)
	for ts := 10; ts <= 16; ts++ {
		samples[ts].Amplitude = 0.8
	}

	analyzer := New(cfg, nil)
	moments := analyzer.Analyze(samples)

	if len(moments) != 1 {
		t.Fatalf("expected one moment for one loud stretch, got %d", len(moments))
	}
	m := moments[0]
	if m.Kind != signals.AudioSustained {
		t.Fatalf("expected sustained classification, got %q", m.Kind)
	}
	if m.Timestamp != 10 {
		t.Fatalf("expected moment at stretch onset t=10, got t=%v", m.Timestamp)
	}
	// Six of the ten lookahead samples stay above 0.7x threshold.
	want := 0.8/0.6*50 + 6*5
	if math.Abs(m.Score-want) > 1e-9 {
		t.Fatalf("expected score %v, got %v", want, m.Score)
	}
}

func TestAnalyzeDetectsSilenceBreak(t *testing.T) {
	samples := flatSeries(0, 5, 1, 0.01)
	samples = append(samples, signals.LevelSample{Timestamp: 6, Amplitude: 0.9, RMS: 0.7})
	samples = append(samples, flatSeries(7, 10, 1, 0.01)...)

	analyzer := New(testConfig(), nil)
	moments := analyzer.Analyze(samples)

	if len(moments) != 1 {
		t.Fatalf("expected one moment, got %d", len(moments))
	}
	m := moments[0]
	if m.Kind != signals.AudioSilenceBreak {
		t.Fatalf("expected silence_break classification, got %q", m.Kind)
	}
	if m.Timestamp != 6 {
		t.Fatalf("expected moment at t=6, got t=%v", m.Timestamp)
	}
	if m.Score != 100 {
		t.Fatalf("expected clamped score 100, got %v", m.Score)
	}
}

func TestAnalyzeQuietRunAtEndEmitsNothing(t *testing.T) {
	samples := flatSeries(0, 3, 1, 0.1)
	samples = append(samples, flatSeries(4, 20, 1, 0.01)...)

	analyzer := New(testConfig(), nil)
	if moments := analyzer.Analyze(samples); len(moments) != 0 {
		t.Fatalf("expected no moments when silence never breaks, got %d", len(moments))
	}
}

func TestAnalyzeEnforcesMinGapAndScoreBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MinGap = 5
	// Spikes every two seconds; only every third one may be emitted.
	samples := flatSeries(0, 60, 1, 0.1)
	for ts := 2; ts <= 60; ts += 2 {
		samples[ts].Amplitude = 0.95
	}

	analyzer := New(cfg, nil)
	moments := analyzer.Analyze(samples)

	if len(moments) == 0 {
		t.Fatal("expected moments from repeated spikes")
	}
	prev := math.Inf(-1)
	for _, m := range moments {
		if m.Score < 0 || m.Score > 100 {
			t.Fatalf("score %v outside [0,100]", m.Score)
		}
		if m.Timestamp <= prev {
			t.Fatalf("timestamps not strictly increasing: %v after %v", m.Timestamp, prev)
		}
		if prev != math.Inf(-1) && m.Timestamp-prev < cfg.MinGap {
			t.Fatalf("moments %v and %v closer than min gap %v", prev, m.Timestamp, cfg.MinGap)
		}
		prev = m.Timestamp
	}
}

func TestAdaptiveThresholdTracksLoudRecordings(t *testing.T) {
	analyzer := New(testConfig(), nil)
	loud := flatSeries(0, 10, 1, 0.4)
	if got := analyzer.adaptiveThreshold(loud); math.Abs(got-1.2) > 1e-9 {
		t.Fatalf("expected threshold 1.2 for median 0.4, got %v", got)
	}
	quiet := flatSeries(0, 10, 1, 0.1)
	if got := analyzer.adaptiveThreshold(quiet); got != analyzer.cfg.PeakThreshold {
		t.Fatalf("expected floor threshold %v for quiet series, got %v", analyzer.cfg.PeakThreshold, got)
	}
}

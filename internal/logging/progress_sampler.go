package logging

import "strings"

// ProgressSampler thins high-frequency progress callbacks down to loggable
// events. yt-dlp reports several times per second; one line per bucket
// crossing and one per stage change is plenty.
type ProgressSampler struct {
	bucketSize float64
	lastStage  string
	lastBucket int
}

// NewProgressSampler returns a sampler that emits whenever percent crosses
// a bucket boundary. bucketSize is in percentage points; zero or negative
// selects 5-point buckets.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether this update deserves a log line. A stage
// change always does and restarts the percent buckets. Negative percent
// means unknown and never emits on its own.
func (s *ProgressSampler) ShouldLog(stage string, percent float64) bool {
	if s == nil {
		return true
	}
	emit := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		bucket := int(percent / s.bucketSize)
		if percent >= 100 {
			bucket = int(100 / s.bucketSize)
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears sampler state between jobs.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStage = ""
	s.lastBucket = -1
}

package signals

import "sort"

// LevelSample is one point of the audio loudness time series: the mean
// amplitude and RMS level measured over one sampling window.
type LevelSample struct {
	Timestamp float64 `json:"timestamp"`
	Amplitude float64 `json:"amplitude"`
	RMS       float64 `json:"rms"`
}

// ChatMessage is a single timestamped chat line from a VOD chat log.
type ChatMessage struct {
	Timestamp float64 `json:"timestamp"`
	Username  string  `json:"username"`
	Message   string  `json:"message"`
}

// ViewerClip records a clip a viewer created from the source VOD. Viewer
// clips are an external signal: their presence marks a moment the audience
// already judged worth keeping.
type ViewerClip struct {
	Timestamp float64 `json:"timestamp"`
	Duration  float64 `json:"duration"`
	ViewCount int     `json:"view_count"`
	Title     string  `json:"title"`
}

// AudioMomentKind classifies how an audio moment was detected.
type AudioMomentKind string

const (
	// AudioPeak is a single loudness spike above the adaptive threshold.
	AudioPeak AudioMomentKind = "peak"
	// AudioSustained is a spike that stays loud across the lookahead window.
	AudioSustained AudioMomentKind = "sustained"
	// AudioSilenceBreak is a quiet stretch ending in a sudden burst.
	AudioSilenceBreak AudioMomentKind = "silence_break"
)

// AudioMoment is a discrete loudness event detected in the audio track.
type AudioMoment struct {
	Timestamp float64         `json:"timestamp"`
	Amplitude float64         `json:"amplitude"`
	RMSLevel  float64         `json:"rms_level"`
	Score     float64         `json:"score"`
	Kind      AudioMomentKind `json:"kind"`
}

// ChatMoment is a burst of chat activity centered on Timestamp. Moments
// from one analysis run never sit closer together than the analyzer's
// window size; the merge pass enforces that spacing.
type ChatMoment struct {
	Timestamp      float64  `json:"timestamp"`
	Velocity       float64  `json:"velocity"`
	EmoteScore     float64  `json:"emote_score"`
	Score          float64  `json:"score"`
	SampleMessages []string `json:"sample_messages,omitempty"`
}

// ChatSignal is the chat contribution recorded on a fused moment.
type ChatSignal struct {
	Timestamp float64 `json:"timestamp"`
	Velocity  float64 `json:"velocity"`
	Score     float64 `json:"score"`
}

// AudioSignal is the audio contribution recorded on a fused moment.
type AudioSignal struct {
	Timestamp float64         `json:"timestamp"`
	Score     float64         `json:"score"`
	Kind      AudioMomentKind `json:"kind"`
}

// ClipSignal is the viewer-clip contribution recorded on a fused moment.
type ClipSignal struct {
	Count      int     `json:"count"`
	TotalViews int     `json:"total_views"`
	Score      float64 `json:"score"`
}

// SignalBreakdown carries the per-source sub-records behind a fused
// moment. A nil field means that source did not match the moment.
type SignalBreakdown struct {
	Chat  *ChatSignal  `json:"chat,omitempty"`
	Audio *AudioSignal `json:"audio,omitempty"`
	Clips *ClipSignal  `json:"clips,omitempty"`
}

// SourceCount returns how many signal sources contributed.
func (b *SignalBreakdown) SourceCount() int {
	if b == nil {
		return 0
	}
	count := 0
	if b.Chat != nil {
		count++
	}
	if b.Audio != nil {
		count++
	}
	if b.Clips != nil {
		count++
	}
	return count
}

// SignalMoment is the fused, deduplicated output unit consumed by clip
// extraction. Duration already includes pre-roll and post-roll padding;
// the extracted interval is [Timestamp-preRoll, Timestamp+Duration-preRoll].
type SignalMoment struct {
	Timestamp      float64          `json:"timestamp"`
	Duration       float64          `json:"duration"`
	Score          float64          `json:"score"`
	Confidence     float64          `json:"confidence"`
	Signals        *SignalBreakdown `json:"signals,omitempty"`
	SuggestedTitle string           `json:"suggested_title"`
}

// SortMomentsByTimestamp orders fused moments chronologically in place.
func SortMomentsByTimestamp(moments []SignalMoment) {
	sort.Slice(moments, func(i, j int) bool {
		return moments[i].Timestamp < moments[j].Timestamp
	})
}

// SortMomentsByScore orders fused moments best-first in place, breaking
// score ties by earlier timestamp.
func SortMomentsByScore(moments []SignalMoment) {
	sort.Slice(moments, func(i, j int) bool {
		if moments[i].Score != moments[j].Score {
			return moments[i].Score > moments[j].Score
		}
		return moments[i].Timestamp < moments[j].Timestamp
	})
}

package fusion

import "clipforge/internal/signals"

// Tier buckets a fused moment's expected highlight quality for display.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Assessment is the display-oriented quality readout for one moment.
// Reasons are derived facts about the moment, not ranking inputs.
type Assessment struct {
	Tier    Tier
	Reasons []string
}

// Grade classifies a fused moment by score and confidence. Grading is a
// query over a finished moment; it never feeds back into ranking.
func Grade(m signals.SignalMoment) Assessment {
	tier := TierLow
	switch {
	case m.Score >= 70 && m.Confidence >= 0.5:
		tier = TierHigh
	case m.Score >= 50 || m.Confidence >= 0.66:
		tier = TierMedium
	}

	var reasons []string
	if m.Signals.SourceCount() >= 2 {
		reasons = append(reasons, "multiple signals converge")
	}
	if m.Score >= 85 {
		reasons = append(reasons, "very high score")
	}
	if m.Signals != nil && m.Signals.Clips != nil {
		reasons = append(reasons, "viewers clipped this moment")
	}
	if m.Signals != nil && m.Signals.Audio != nil && m.Signals.Audio.Kind == signals.AudioSilenceBreak {
		reasons = append(reasons, "comedic timing")
	}
	return Assessment{Tier: tier, Reasons: reasons}
}

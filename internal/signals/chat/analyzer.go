package chat

import (
	"log/slog"
	"math"
	"sort"

	"clipforge/internal/logging"
	"clipforge/internal/signals"
)

// Minimum combined score a window must reach to survive.
const minCombinedScore = 20.0

// maxSampleMessages bounds how many representative messages a moment keeps.
const maxSampleMessages = 3

// Config controls chat burst detection. WindowSize and StepSize are
// seconds; MinVelocity is the minimum message count per window; EmoteWeight
// in [0,1] shifts scoring between raw velocity and lexical excitement.
type Config struct {
	WindowSize  float64
	StepSize    float64
	MinVelocity float64
	EmoteWeight float64
}

// DefaultConfig returns the detection settings used when the job supplies none.
func DefaultConfig() Config {
	return Config{
		WindowSize:  5.0,
		StepSize:    2.5,
		MinVelocity: 5,
		EmoteWeight: 0.4,
	}
}

// Analyzer turns a chat log into discrete chat moments.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs an analyzer. A nil logger disables logging.
func New(cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{cfg: cfg, logger: logging.NewComponentLogger(logger, "chat-analyzer")}
}

// Analyze slides a scoring window across the chat log and returns merged
// burst moments ordered by timestamp. Messages need not arrive sorted.
func (a *Analyzer) Analyze(messages []signals.ChatMessage) []signals.ChatMoment {
	if len(messages) == 0 {
		return nil
	}

	sorted := make([]signals.ChatMessage, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	first := sorted[0].Timestamp
	last := sorted[len(sorted)-1].Timestamp

	var windows []signals.ChatMoment
	lo, hi := 0, 0
	for start := first; start <= last-a.cfg.WindowSize+1e-9; start += a.cfg.StepSize {
		end := start + a.cfg.WindowSize
		for lo < len(sorted) && sorted[lo].Timestamp < start {
			lo++
		}
		if hi < lo {
			hi = lo
		}
		for hi < len(sorted) && sorted[hi].Timestamp < end {
			hi++
		}
		member := sorted[lo:hi]
		if float64(len(member)) < a.cfg.MinVelocity {
			continue
		}
		if moment, ok := a.scoreWindow(start, member); ok {
			windows = append(windows, moment)
		}
	}

	merged := mergeAdjacent(windows, a.cfg.WindowSize)
	a.logger.Debug("chat analysis complete",
		logging.Int("message_count", len(messages)),
		logging.Int("window_count", len(windows)),
		logging.Int("moment_count", len(merged)),
	)
	return merged
}

// scoreWindow blends velocity and emote excitement for one window. The
// returned moment sits at the window center.
func (a *Analyzer) scoreWindow(start float64, member []signals.ChatMessage) (signals.ChatMoment, bool) {
	velocity := float64(len(member)) / a.cfg.WindowSize

	totalEmote := 0.0
	for _, msg := range member {
		totalEmote += messageExcitement(msg.Message)
	}
	normalized := totalEmote / float64(len(member))

	velocityScore := math.Min(velocity/10, 1) * 100
	emoteContribution := math.Min(normalized*20, 100)
	combined := velocityScore*(1-a.cfg.EmoteWeight) + emoteContribution*a.cfg.EmoteWeight
	if combined < minCombinedScore {
		return signals.ChatMoment{}, false
	}

	return signals.ChatMoment{
		Timestamp:      start + a.cfg.WindowSize/2,
		Velocity:       velocity,
		EmoteScore:     normalized,
		Score:          combined,
		SampleMessages: sampleMessages(member),
	}, true
}

// sampleMessages keeps the most excited messages from the window, restored
// to chronological order.
func sampleMessages(member []signals.ChatMessage) []string {
	if len(member) == 0 {
		return nil
	}
	indexed := make([]int, len(member))
	for i := range indexed {
		indexed[i] = i
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		return messageExcitement(member[indexed[i]].Message) > messageExcitement(member[indexed[j]].Message)
	})
	keep := indexed
	if len(keep) > maxSampleMessages {
		keep = keep[:maxSampleMessages]
	}
	sort.Ints(keep)
	out := make([]string, 0, len(keep))
	for _, idx := range keep {
		out = append(out, member[idx].Message)
	}
	return out
}

// mergeAdjacent collapses windows closer together than gap in one
// left-to-right pass, keeping the higher scorer of each colliding pair.
// Windows must arrive sorted by timestamp.
func mergeAdjacent(windows []signals.ChatMoment, gap float64) []signals.ChatMoment {
	if len(windows) == 0 {
		return nil
	}
	out := make([]signals.ChatMoment, 0, len(windows))
	out = append(out, windows[0])
	for _, w := range windows[1:] {
		prev := &out[len(out)-1]
		if w.Timestamp-prev.Timestamp < gap {
			if w.Score > prev.Score {
				*prev = w
			}
			continue
		}
		out = append(out, w)
	}
	return out
}

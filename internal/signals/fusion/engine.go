package fusion

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipforge/internal/logging"
	"clipforge/internal/signals"
)

// signalSourceTypes is the number of independent source types the engine
// knows about (chat, audio, viewer clips). Confidence divides by this, so
// adding a fourth source means updating this constant in lockstep.
const signalSourceTypes = 3

const (
	// sustainedDurationBonus extends clips whose audio match is sustained.
	sustainedDurationBonus = 5.0
	// chatDurationBonus extends clips whose chat match ran hotter than
	// chatDurationVelocity messages per second.
	chatDurationBonus    = 3.0
	chatDurationVelocity = 5.0
	// minTitleLength is the shortest viewer-clip title worth reusing.
	minTitleLength = 3
)

// Weights distributes scoring influence across the source types. Callers
// are expected to hand in weights that sum to 1; the engine applies them
// as given and does not renormalize.
type Weights struct {
	Chat  float64
	Audio float64
	Clips float64
}

// Config controls fusion scoring and clip interval shaping. Durations and
// windows are seconds; scores are on the shared 0-100 scale.
type Config struct {
	Weights Weights
	// PreRoll and PostRoll pad the clip interval around the detected
	// timestamp. Their sum is the base clip duration.
	PreRoll  float64
	PostRoll float64
	// MinDuration and MaxDuration clamp the final clip duration.
	MinDuration float64
	MaxDuration float64
	// MinScore drops candidates scoring below it.
	MinScore float64
	// ConvergenceBonus is added per agreeing source beyond the first.
	ConvergenceBonus float64
	// ConvergenceWindow is how far a chat or audio moment may sit from a
	// candidate timestamp and still count as matching it. Viewer clips
	// match within twice this window.
	ConvergenceWindow float64
}

// DefaultConfig returns the fusion settings used when the job supplies none.
func DefaultConfig() Config {
	return Config{
		Weights:           Weights{Chat: 0.4, Audio: 0.4, Clips: 0.2},
		PreRoll:           5.0,
		PostRoll:          15.0,
		MinDuration:       15.0,
		MaxDuration:       60.0,
		MinScore:          40.0,
		ConvergenceBonus:  20.0,
		ConvergenceWindow: 5.0,
	}
}

// Engine fuses per-source moments into ranked signal moments.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs an engine. A nil logger disables logging.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{cfg: cfg, logger: logging.NewComponentLogger(logger, "fusion")}
}

// Fuse combines the three signal sources into deduplicated moments sorted
// by timestamp. Any source may be empty.
func (e *Engine) Fuse(chat []signals.ChatMoment, audio []signals.AudioMoment, clips []signals.ViewerClip) []signals.SignalMoment {
	candidates := candidateTimestamps(chat, audio, clips)
	if len(candidates) == 0 {
		return nil
	}

	scored := make([]signals.SignalMoment, 0, len(candidates))
	for _, ts := range candidates {
		if moment, ok := e.scoreCandidate(ts, chat, audio, clips); ok {
			scored = append(scored, moment)
		}
	}

	accepted := e.dedupe(scored)
	signals.SortMomentsByTimestamp(accepted)

	e.logger.Debug("fusion complete",
		logging.Int("candidate_count", len(candidates)),
		logging.Int("scored_count", len(scored)),
		logging.Int("moment_count", len(accepted)),
	)
	return accepted
}

// candidateTimestamps collects the integer-rounded timestamp of every
// source moment, each timestamp once, sorted ascending.
func candidateTimestamps(chat []signals.ChatMoment, audio []signals.AudioMoment, clips []signals.ViewerClip) []float64 {
	seen := make(map[int64]struct{}, len(chat)+len(audio)+len(clips))
	add := func(ts float64) {
		seen[int64(math.Round(ts))] = struct{}{}
	}
	for _, m := range chat {
		add(m.Timestamp)
	}
	for _, m := range audio {
		add(m.Timestamp)
	}
	for _, c := range clips {
		add(c.Timestamp)
	}
	out := make([]float64, 0, len(seen))
	for ts := range seen {
		out = append(out, float64(ts))
	}
	sort.Float64s(out)
	return out
}

// scoreCandidate gathers source matches around ts and produces a fused
// moment, or false when the candidate scores below the floor.
func (e *Engine) scoreCandidate(ts float64, chat []signals.ChatMoment, audio []signals.AudioMoment, clips []signals.ViewerClip) (signals.SignalMoment, bool) {
	chatMatch := nearestChat(ts, chat, e.cfg.ConvergenceWindow)
	audioMatch := nearestAudio(ts, audio, e.cfg.ConvergenceWindow)
	clipMatches := clipsWithin(ts, clips, 2*e.cfg.ConvergenceWindow)

	score := 0.0
	sourceCount := 0
	breakdown := &signals.SignalBreakdown{}

	if chatMatch != nil {
		score += chatMatch.Score * e.cfg.Weights.Chat
		sourceCount++
		breakdown.Chat = &signals.ChatSignal{
			Timestamp: chatMatch.Timestamp,
			Velocity:  chatMatch.Velocity,
			Score:     chatMatch.Score,
		}
	}
	if audioMatch != nil {
		score += audioMatch.Score * e.cfg.Weights.Audio
		sourceCount++
		breakdown.Audio = &signals.AudioSignal{
			Timestamp: audioMatch.Timestamp,
			Score:     audioMatch.Score,
			Kind:      audioMatch.Kind,
		}
	}
	if len(clipMatches) > 0 {
		clipScore, totalViews := clipSourceScore(clipMatches)
		score += clipScore * e.cfg.Weights.Clips
		sourceCount++
		breakdown.Clips = &signals.ClipSignal{
			Count:      len(clipMatches),
			TotalViews: totalViews,
			Score:      clipScore,
		}
	}

	// Reward agreement between independent sources, not any single
	// strong signal.
	if sourceCount >= 2 {
		score += e.cfg.ConvergenceBonus * float64(sourceCount-1)
	}
	if score < e.cfg.MinScore {
		return signals.SignalMoment{}, false
	}

	return signals.SignalMoment{
		Timestamp:      ts,
		Duration:       e.clipDuration(chatMatch, audioMatch),
		Score:          math.Min(score, 100),
		Confidence:     float64(sourceCount) / signalSourceTypes,
		Signals:        breakdown,
		SuggestedTitle: e.suggestTitle(chatMatch, audioMatch, clipMatches),
	}, true
}

// clipDuration shapes the clip interval: pre-roll plus post-roll, extended
// when the matched signals suggest the moment runs long, clamped to the
// configured bounds.
func (e *Engine) clipDuration(chatMatch *signals.ChatMoment, audioMatch *signals.AudioMoment) float64 {
	duration := e.cfg.PreRoll + e.cfg.PostRoll
	if audioMatch != nil && audioMatch.Kind == signals.AudioSustained {
		duration += sustainedDurationBonus
	}
	if chatMatch != nil && chatMatch.Velocity > chatDurationVelocity {
		duration += chatDurationBonus
	}
	if duration < e.cfg.MinDuration {
		duration = e.cfg.MinDuration
	}
	if duration > e.cfg.MaxDuration {
		duration = e.cfg.MaxDuration
	}
	return duration
}

// suggestTitle picks a display title: the most-viewed viewer clip's own
// title when it has one, else a label keyed to the strongest signal shape.
// Reused viewer titles are re-cased because clip creators tend toward all
// caps or all lowercase.
func (e *Engine) suggestTitle(chatMatch *signals.ChatMoment, audioMatch *signals.AudioMoment, clipMatches []signals.ViewerClip) string {
	if len(clipMatches) > 0 {
		top := clipMatches[0]
		for _, c := range clipMatches[1:] {
			if c.ViewCount > top.ViewCount {
				top = c
			}
		}
		if title := strings.TrimSpace(top.Title); utf8.RuneCountInString(title) > minTitleLength {
			return cases.Title(language.Und).String(title)
		}
	}
	switch {
	case audioMatch != nil && audioMatch.Kind == signals.AudioSilenceBreak:
		return "Out of Nowhere"
	case audioMatch != nil && audioMatch.Score >= 85:
		return "Hype Moment"
	case chatMatch != nil && chatMatch.Velocity > 8:
		return "Chat Explosion"
	case len(clipMatches) >= 3:
		return "Crowd Favorite"
	}
	return "Highlight"
}

// dedupe ranks candidates best-first and greedily accepts each one whose
// effective interval does not overlap an already accepted interval.
func (e *Engine) dedupe(scored []signals.SignalMoment) []signals.SignalMoment {
	ranked := make([]signals.SignalMoment, len(scored))
	copy(ranked, scored)
	signals.SortMomentsByScore(ranked)

	accepted := make([]signals.SignalMoment, 0, len(ranked))
	for _, cand := range ranked {
		if e.overlapsAccepted(accepted, cand) {
			continue
		}
		accepted = append(accepted, cand)
	}
	return accepted
}

func (e *Engine) overlapsAccepted(accepted []signals.SignalMoment, cand signals.SignalMoment) bool {
	candStart, candEnd := e.effectiveInterval(cand)
	for _, a := range accepted {
		start, end := e.effectiveInterval(a)
		if candStart < end && start < candEnd {
			return true
		}
	}
	return false
}

// effectiveInterval maps a moment to the wall-clock span its extracted
// clip will cover.
func (e *Engine) effectiveInterval(m signals.SignalMoment) (start, end float64) {
	start = m.Timestamp - e.cfg.PreRoll
	return start, start + m.Duration
}

// nearestChat returns the chat moment closest to ts within the window, or
// nil. Ties keep the earlier moment.
func nearestChat(ts float64, moments []signals.ChatMoment, window float64) *signals.ChatMoment {
	var best *signals.ChatMoment
	bestDist := math.Inf(1)
	for i := range moments {
		dist := math.Abs(moments[i].Timestamp - ts)
		if dist <= window && dist < bestDist {
			best = &moments[i]
			bestDist = dist
		}
	}
	return best
}

// nearestAudio returns the audio moment closest to ts within the window,
// or nil. Ties keep the earlier moment.
func nearestAudio(ts float64, moments []signals.AudioMoment, window float64) *signals.AudioMoment {
	var best *signals.AudioMoment
	bestDist := math.Inf(1)
	for i := range moments {
		dist := math.Abs(moments[i].Timestamp - ts)
		if dist <= window && dist < bestDist {
			best = &moments[i]
			bestDist = dist
		}
	}
	return best
}

// clipsWithin returns every viewer clip within the window of ts.
func clipsWithin(ts float64, clips []signals.ViewerClip, window float64) []signals.ViewerClip {
	var matched []signals.ViewerClip
	for _, c := range clips {
		if math.Abs(c.Timestamp-ts) <= window {
			matched = append(matched, c)
		}
	}
	return matched
}

// clipSourceScore rates a set of matched viewer clips: count carries most
// of the weight, aggregate views add a capped bump.
func clipSourceScore(matched []signals.ViewerClip) (score float64, totalViews int) {
	for _, c := range matched {
		totalViews += c.ViewCount
	}
	score = float64(len(matched))*20 + math.Min(float64(totalViews)/50, 40)
	return math.Min(score, 100), totalViews
}

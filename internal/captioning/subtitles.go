package captioning

import (
	"fmt"
	"math"
	"os"
	"strings"

	"clipforge/internal/services/whisperx"
)

const (
	// maxWordsPerCue keeps caption lines short enough to read on a phone.
	maxWordsPerCue = 4
	// maxCueSeconds flushes a cue early when speech is slow.
	maxCueSeconds = 2.5
	// minCueSeconds keeps a cue on screen long enough to register when
	// word timings collapse to a near-zero span.
	minCueSeconds = 0.8
)

// cue is one rendered caption line.
type cue struct {
	start float64
	end   float64
	text  string
}

// buildCues groups transcript words into short timed caption lines.
// Segments without word-level timing fall back to one cue per segment.
func buildCues(transcript whisperx.Transcript) []cue {
	var cues []cue
	for _, segment := range transcript.Segments {
		if len(segment.Words) == 0 {
			text := strings.TrimSpace(segment.Text)
			if text == "" {
				continue
			}
			cues = append(cues, clampCue(cue{start: segment.Start, end: segment.End, text: text}))
			continue
		}

		var (
			words []string
			start float64
			end   float64
		)
		flush := func() {
			if len(words) == 0 {
				return
			}
			cues = append(cues, clampCue(cue{start: start, end: end, text: strings.Join(words, " ")}))
			words = words[:0]
		}
		for _, word := range segment.Words {
			text := strings.TrimSpace(word.Word)
			if text == "" {
				continue
			}
			if len(words) == 0 {
				start = word.Start
			}
			words = append(words, text)
			if word.End > end {
				end = word.End
			}
			if len(words) >= maxWordsPerCue || end-start >= maxCueSeconds {
				flush()
			}
		}
		flush()
	}
	return cues
}

func clampCue(c cue) cue {
	if c.start < 0 {
		c.start = 0
	}
	if c.end < c.start+minCueSeconds {
		c.end = c.start + minCueSeconds
	}
	return c
}

// assHeader is the script preamble for burned captions: a 9:16 canvas with
// one bold outlined style anchored above the bottom edge.
const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption,Arial,96,&H00FFFFFF,&H00FFFFFF,&H00000000,&H7F000000,-1,0,0,0,100,100,0,0,1,6,0,2,60,60,320,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// writeASS renders the cues as an ASS script at path.
func writeASS(path string, cues []cue) error {
	var b strings.Builder
	b.WriteString(assHeader)
	for _, c := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n", assTimestamp(c.start), assTimestamp(c.end), sanitizeCaption(c.text))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write subtitle script: %w", err)
	}
	return nil
}

// assTimestamp renders seconds as the H:MM:SS.CC format ASS uses.
func assTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	centis := int(math.Round(seconds * 100))
	hours := centis / 360000
	centis %= 360000
	minutes := centis / 6000
	centis %= 6000
	secs := centis / 100
	centis %= 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

// sanitizeCaption strips characters ASS treats as markup.
func sanitizeCaption(text string) string {
	text = strings.ReplaceAll(text, "{", "")
	text = strings.ReplaceAll(text, "}", "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}

package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	capsBonus        = 0.5
	capsRatioMin     = 0.7
	capsLengthMin    = 5
	repeatBonus      = 0.3
	repeatRunMin     = 5
	tokenPunctuation = "!?.,:;\"'()[]"
)

// emoteWeights maps known hype tokens to their excitement weight. Tokens
// are matched case-insensitively against whitespace-separated words.
var emoteWeights = map[string]float64{
	"pogchamp":  1.5,
	"omegalul":  1.5,
	"clipit":    1.5,
	"kekw":      1.4,
	"poggers":   1.3,
	"clip":      1.3,
	"clipped":   1.3,
	"pog":       1.2,
	"lul":       1.2,
	"lulw":      1.2,
	"pepelaugh": 1.2,
	"insane":    1.1,
	"cracked":   1.1,
	"lmao":      1.0,
	"monkas":    1.0,
	"icant":     1.0,
	"noway":     1.0,
	"wtf":       1.0,
	"hype":      1.0,
	"lol":       0.8,
	"xd":        0.8,
	"gg":        0.6,
	"w":         0.6,
}

// messageExcitement scores one chat message: known emote tokens by weight,
// plus a shouting bonus for mostly-uppercase messages and a spam bonus for
// long repeated-character runs.
func messageExcitement(message string) float64 {
	score := 0.0
	for _, token := range strings.Fields(strings.ToLower(message)) {
		token = strings.Trim(token, tokenPunctuation)
		if weight, ok := emoteWeights[token]; ok {
			score += weight
		}
	}
	if capsRatio(message) > capsRatioMin && utf8.RuneCountInString(message) > capsLengthMin {
		score += capsBonus
	}
	if hasRepeatedRun(message, repeatRunMin) {
		score += repeatBonus
	}
	return score
}

// capsRatio returns the fraction of letters that are uppercase, or 0 when
// the message has no letters.
func capsRatio(message string) float64 {
	letters, upper := 0, 0
	for _, r := range message {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// hasRepeatedRun reports whether any rune repeats at least n times in a row.
func hasRepeatedRun(message string, n int) bool {
	var prev rune
	run := 0
	for _, r := range message {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

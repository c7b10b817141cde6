package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// aliases resolves identifiers x/text cannot parse: spelled-out English
// names and the bibliographic ISO 639-2/B variants (fre, ger, dut, chi).
var aliases = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"turkish":    "tr",
	"ukrainian":  "uk",

	"fre": "fr",
	"ger": "de",
	"dut": "nl",
	"chi": "zh",
}

// parseBase resolves an identifier to a base language via the alias table
// and BCP 47 parsing. ok is false when neither recognizes the input.
func parseBase(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return language.Base{}, false
	}
	if mapped, ok := aliases[code]; ok {
		code = mapped
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Base{}, false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return language.Base{}, false
	}
	return base, true
}

// ToISO2 normalizes any recognized identifier to ISO 639-1. Unrecognized
// two-letter input passes through unchanged so an explicit operator choice
// still reaches the transcriber; everything else unrecognized returns "".
func ToISO2(code string) string {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return ""
	}
	if base, ok := parseBase(trimmed); ok {
		if s := base.String(); len(s) == 2 {
			return s
		}
	}
	if len(trimmed) == 2 {
		return trimmed
	}
	return ""
}

// DisplayName returns the English name for a recognized identifier, the
// uppercased input when nothing recognizes it, and "Unknown" for empty
// input. Meant for log lines and status output, never for tool flags.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if base, ok := parseBase(trimmed); ok {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

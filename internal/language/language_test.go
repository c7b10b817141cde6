package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"es", "es"},
		// ISO 639-2/T and 639-3 codes collapse to the 2-letter form
		{"eng", "en"},
		{"spa", "es"},
		{"fra", "fr"},
		{"deu", "de"},
		{"jpn", "ja"},
		{"kor", "ko"},
		{"zho", "zh"},
		// bibliographic variants only the alias table knows
		{"fre", "fr"},
		{"ger", "de"},
		{"dut", "nl"},
		{"chi", "zh"},
		// spelled-out names
		{"english", "en"},
		{"English", "en"},
		{"JAPANESE", "ja"},
		{"ukrainian", "uk"},
		// regional tags resolve to their base
		{"pt-BR", "pt"},
		{"zh-TW", "zh"},
		// unknown 2-letter codes pass through for the transcriber to judge
		{"xx", "xx"},
		// everything else unrecognized is dropped
		{"xyz", ""},
		{"klingon", ""},
		{"", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := ToISO2(tt.input); got != tt.expected {
			t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"spa", "Spanish"},
		{"french", "French"},
		{"pt-BR", "Portuguese"},
		{"", "Unknown"},
		{"   ", "Unknown"},
		{"xx", "XX"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

package chat

import (
	"fmt"
	"math"
	"testing"

	"clipforge/internal/signals"
)

func testConfig() Config {
	return Config{
		WindowSize:  5.0,
		StepSize:    2.5,
		MinVelocity: 5,
		EmoteWeight: 0.4,
	}
}

func burstAt(start float64, count int, text string) []signals.ChatMessage {
	msgs := make([]signals.ChatMessage, 0, count)
	for i := 0; i < count; i++ {
		msgs = append(msgs, signals.ChatMessage{
			Timestamp: start + float64(i)*2/float64(count),
			Username:  fmt.Sprintf("viewer%d", i),
			Message:   text,
		})
	}
	return msgs
}

func TestAnalyzeEmptyInput(t *testing.T) {
	analyzer := New(testConfig(), nil)
	if moments := analyzer.Analyze(nil); len(moments) != 0 {
		t.Fatalf("expected no moments for empty log, got %d", len(moments))
	}
}

func TestAnalyzeSparseChatYieldsNothing(t *testing.T) {
	var msgs []signals.ChatMessage
	for ts := 0.0; ts <= 120; ts += 15 {
		msgs = append(msgs, signals.ChatMessage{Timestamp: ts, Username: "idle", Message: "hello"})
	}
	analyzer := New(testConfig(), nil)
	if moments := analyzer.Analyze(msgs); len(moments) != 0 {
		t.Fatalf("expected no moments below the velocity floor, got %d", len(moments))
	}
}

func TestAnalyzeDetectsBurst(t *testing.T) {
	msgs := []signals.ChatMessage{
		{Timestamp: 0, Username: "idle", Message: "hi"},
		{Timestamp: 20, Username: "idle", Message: "bye"},
	}
	msgs = append(msgs, burstAt(10, 20, "that was wild")...)

	analyzer := New(testConfig(), nil)
	moments := analyzer.Analyze(msgs)

	if len(moments) != 1 {
		t.Fatalf("expected one merged moment, got %d", len(moments))
	}
	m := moments[0]
	if m.Timestamp != 10 {
		t.Fatalf("expected moment centered at t=10, got t=%v", m.Timestamp)
	}
	if math.Abs(m.Velocity-4) > 1e-9 {
		t.Fatalf("expected velocity 4 msg/s, got %v", m.Velocity)
	}
	if len(m.SampleMessages) == 0 || len(m.SampleMessages) > maxSampleMessages {
		t.Fatalf("expected 1..%d sample messages, got %d", maxSampleMessages, len(m.SampleMessages))
	}
}

func TestAnalyzeEmoteContributionIsAdditive(t *testing.T) {
	plain := []signals.ChatMessage{
		{Timestamp: 0, Username: "idle", Message: "ok"},
		{Timestamp: 20, Username: "idle", Message: "ok"},
	}
	plain = append(plain, burstAt(10, 20, "that was something")...)

	hyped := []signals.ChatMessage{
		{Timestamp: 0, Username: "idle", Message: "ok"},
		{Timestamp: 20, Username: "idle", Message: "ok"},
	}
	burst := burstAt(10, 20, "that was something")
	for i := 0; i < 6; i++ {
		burst[i].Message = "PogChamp"
	}
	hyped = append(hyped, burst...)

	analyzer := New(testConfig(), nil)
	plainMoments := analyzer.Analyze(plain)
	hypedMoments := analyzer.Analyze(hyped)

	if len(plainMoments) != 1 || len(hypedMoments) != 1 {
		t.Fatalf("expected one moment per log, got %d and %d", len(plainMoments), len(hypedMoments))
	}
	if hypedMoments[0].Score <= plainMoments[0].Score {
		t.Fatalf("expected emote tokens to raise the score: plain %v, hyped %v",
			plainMoments[0].Score, hypedMoments[0].Score)
	}
	if hypedMoments[0].EmoteScore <= 0 {
		t.Fatalf("expected positive emote score, got %v", hypedMoments[0].EmoteScore)
	}
}

func TestAnalyzeMergeEnforcesWindowSpacing(t *testing.T) {
	cfg := testConfig()
	cfg.StepSize = 1
	var msgs []signals.ChatMessage
	// Ten messages per second for a minute keeps every window hot.
	for ts := 0.0; ts < 60; ts += 0.1 {
		msgs = append(msgs, signals.ChatMessage{Timestamp: ts, Username: "spam", Message: "go go go"})
	}

	analyzer := New(cfg, nil)
	moments := analyzer.Analyze(msgs)

	if len(moments) == 0 {
		t.Fatal("expected moments from sustained heavy chat")
	}
	for i := 1; i < len(moments); i++ {
		if gap := moments[i].Timestamp - moments[i-1].Timestamp; gap < cfg.WindowSize {
			t.Fatalf("moments %d and %d are %vs apart, want >= %v", i-1, i, gap, cfg.WindowSize)
		}
	}
}

func TestAnalyzeUnsortedInput(t *testing.T) {
	msgs := burstAt(10, 20, "no way")
	msgs = append(msgs, signals.ChatMessage{Timestamp: 0, Username: "idle", Message: "hi"})
	msgs = append(msgs, signals.ChatMessage{Timestamp: 20, Username: "idle", Message: "bye"})

	analyzer := New(testConfig(), nil)
	moments := analyzer.Analyze(msgs)
	if len(moments) != 1 {
		t.Fatalf("expected one moment from unsorted input, got %d", len(moments))
	}
}

func TestMessageExcitement(t *testing.T) {
	cases := []struct {
		message string
		want    float64
	}{
		{"hello there", 0},
		{"PogChamp", 1.5},
		{"pogchamp kekw", 2.9},
		{"AAAAAAA", 0.8},
		{"nice one!", 0},
		{"CLIP IT NOW", 1.8},
		{"loooooool", 0.3},
	}
	for _, tc := range cases {
		if got := messageExcitement(tc.message); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("messageExcitement(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

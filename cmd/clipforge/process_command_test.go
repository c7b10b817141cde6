package main

import (
	"strings"
	"testing"
)

func TestProcessRefusesWhenDaemonRunning(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"process", "https://www.twitch.tv/videos/555"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "daemon is running") {
		t.Fatalf("expected running daemon refusal, got %v", err)
	}
}

func TestFormatClipDuration(t *testing.T) {
	cases := map[float64]string{
		30:   "30s",
		90:   "1m30s",
		3661: "1h1m1s",
		29.6: "30s",
		0:    "0s",
	}
	for seconds, want := range cases {
		if got := formatClipDuration(seconds); got != want {
			t.Fatalf("formatClipDuration(%v) = %q, want %q", seconds, got, want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "clipforge dev")
}

func TestRootHelpListsCommands(t *testing.T) {
	out, _, err := runCLI(t, []string{"--help"}, "")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"add", "process", "resume", "queue", "status", "doctor", "config", "logs", "notify", "version"} {
		requireContains(t, out, name)
	}
	if strings.Contains(out, "Run the clipforge daemon (internal)") {
		t.Fatalf("hidden daemon command leaked into help:\n%s", out)
	}
}

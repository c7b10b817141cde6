package main

import (
	"encoding/json"
	"testing"
)

func TestDoctorHealthyEnvironment(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out, "Configuration")
	requireContains(t, out, "External Tools")
	requireContains(t, out, "Workspace")
	requireContains(t, out, "yt-dlp")
	requireContains(t, out, "[OK] Ready")
	requireContains(t, out, "GPU")
}

func TestDoctorJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor --json: %v", err)
	}

	var report map[string]any
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if report["problems"] != float64(0) {
		t.Fatalf("expected 0 problems, got %v", report["problems"])
	}
	tools, ok := report["tools"].([]any)
	if !ok || len(tools) == 0 {
		t.Fatalf("expected tools array, got %v", report["tools"])
	}
	if report["configExists"] != true {
		t.Fatalf("expected configExists=true, got %v", report["configExists"])
	}
}

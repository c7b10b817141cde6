package main

import (
	"encoding/json"
	"testing"
)

func TestNotifyTestWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestNotifyTestJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "test", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test --json: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if resp["sent"] != false {
		t.Fatalf("expected sent=false, got %v", resp["sent"])
	}
	if resp["message"] != "ntfy topic not configured" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

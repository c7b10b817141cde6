package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"clipforge/internal/queue"
)

// syncBuffer is a thread-safe wrapper around bytes.Buffer for use in tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

func TestStartAgainstRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"start"}, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon already running")
}

func TestStatusSections(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewJob(ctx, "vod-alpha", "https://vods.example.com/alpha", "", ""); err != nil {
		t.Fatalf("create alpha: %v", err)
	}
	beta, err := env.store.NewJob(ctx, "vod-beta", "https://vods.example.com/beta", "", "")
	if err != nil {
		t.Fatalf("create beta: %v", err)
	}
	beta.Status = queue.StatusFailed
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("update beta: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "Dependencies")
	requireContains(t, out, "Workspace Paths")
	requireContains(t, out, "Queue Status")
	requireContains(t, out, "Queued")
	requireContains(t, out, "Failed")
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewJob(ctx, "vod-alpha", "https://vods.example.com/alpha", "", ""); err != nil {
		t.Fatalf("create alpha: %v", err)
	}

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}

	var report map[string]any
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	for _, key := range []string{"daemon", "system", "workspace", "dependencySummary"} {
		if _, ok := report[key]; !ok {
			t.Fatalf("missing %q key in status JSON: %v", key, report)
		}
	}
	daemonPart, ok := report["daemon"].(map[string]any)
	if !ok {
		t.Fatalf("expected daemon object, got %T", report["daemon"])
	}
	if _, ok := daemonPart["queueDbPath"]; !ok {
		t.Fatalf("missing queueDbPath in daemon JSON: %v", daemonPart)
	}
	workflow, ok := daemonPart["workflow"].(map[string]any)
	if !ok {
		t.Fatalf("expected workflow object, got %T", daemonPart["workflow"])
	}
	stats, ok := workflow["queueStats"].(map[string]any)
	if !ok {
		t.Fatalf("expected queueStats object, got %T", workflow["queueStats"])
	}
	if stats["queued"] != float64(1) {
		t.Fatalf("expected queued=1, got %v", stats["queued"])
	}
}

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, line := range []string{"first", "second", "third"} {
		if err := appendLine(env.logPath, line); err != nil {
			t.Fatalf("append %q: %v", line, err)
		}
	}

	out, _, err := runCLI(t, []string{"logs", "--lines", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "second")
	requireContains(t, out, "third")
	if strings.Contains(out, "first") {
		t.Fatalf("expected first line to be trimmed, got:\n%s", out)
	}
}

func TestLogsEmptyFile(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log entries available")
}

func TestLogsFollow(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := appendLine(env.logPath, "first"); err != nil {
		t.Fatalf("append first: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", env.configPath, "logs", "--follow"})
	cmd.SetContext(ctx)
	stdout := &syncBuffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	waitFor(t, 2*time.Second, func() bool { return stdout.Len() > 0 })
	if err := appendLine(env.logPath, "second"); err != nil {
		t.Fatalf("append second: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return strings.Contains(stdout.String(), "second") })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("logs --follow did not exit")
	}
}

package daemonctl_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/daemonctl"
	"clipforge/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	pid, err := daemonctl.ReadPID(filepath.Join(dir, "missing.pid"))
	if err != nil || pid != 0 {
		t.Fatalf("missing file: pid=%d err=%v", pid, err)
	}

	path := filepath.Join(dir, "clipforged.pid")
	if err := os.WriteFile(path, []byte("4321\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	pid, err = daemonctl.ReadPID(path)
	if err != nil || pid != 4321 {
		t.Fatalf("valid file: pid=%d err=%v", pid, err)
	}

	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if _, err := daemonctl.ReadPID(path); err == nil {
		t.Fatal("expected error for garbage pid file")
	}
}

func TestForceKillRefusesOwnProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipforged.pid")
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	if _, err := daemonctl.ForceKillProcess(path, "", 0); err == nil || !strings.Contains(err.Error(), "refusing") {
		t.Fatalf("expected self-kill refusal, got %v", err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(context.Background(), nil, cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	status, err := daemonctl.BuildStatusSnapshot(context.Background(), nil, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Running {
		t.Fatal("expected offline snapshot")
	}
	if status.QueueDBPath != cfg.DatabasePath() {
		t.Fatalf("expected queue db fallback, got %q", status.QueueDBPath)
	}
	if len(status.Dependencies) < 3 {
		t.Fatalf("expected resolved dependencies, got %d", len(status.Dependencies))
	}
}

func TestBuildDependencySummary(t *testing.T) {
	summary := daemonctl.BuildDependencySummary(nil)
	if summary.Severity != "info" {
		t.Fatalf("empty input severity = %q", summary.Severity)
	}

	summary = daemonctl.BuildDependencySummary([]api.DependencyStatus{
		{Name: "ffmpeg", Available: true},
		{Name: "yt-dlp", Available: true},
	})
	if summary.Severity != "ok" || summary.Detail != "2/2 available" {
		t.Fatalf("all available: %+v", summary)
	}

	summary = daemonctl.BuildDependencySummary([]api.DependencyStatus{
		{Name: "ffmpeg", Available: true},
		{Name: "yt-dlp", Available: false},
		{Name: "uvx", Available: false, Optional: true},
	})
	if summary.Severity != "error" || summary.MissingRequired != 1 || summary.MissingOptional != 1 {
		t.Fatalf("missing required: %+v", summary)
	}
	if summary.Detail != "1/3 available (missing: 1 required, 1 optional)" {
		t.Fatalf("unexpected detail %q", summary.Detail)
	}
}

func TestBuildSystemChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	lines := daemonctl.BuildSystemChecks(cfg, false)
	if len(lines) == 0 || lines[0].Label != "ClipForge" || lines[0].Severity != "warn" {
		t.Fatalf("expected not-running warning first, got %+v", lines)
	}

	lines = daemonctl.BuildSystemChecks(cfg, true)
	if lines[0].Severity != "ok" || lines[0].Detail != "Running" {
		t.Fatalf("expected running line, got %+v", lines[0])
	}

	workspace := daemonctl.BuildWorkspaceChecks(cfg)
	for _, line := range workspace {
		if line.Severity != "ok" {
			t.Fatalf("expected writable test directories, got %+v", line)
		}
	}
}

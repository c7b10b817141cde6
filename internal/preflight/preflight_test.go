package preflight

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace_OK(t *testing.T) {
	result := CheckFreeSpace("test", t.TempDir(), 1)
	if !result.Passed {
		t.Fatalf("expected pass for tiny floor, got: %s", result.Detail)
	}
	if result.Detail == "" {
		t.Fatal("expected detail with free-space figure")
	}
}

func TestCheckFreeSpace_Insufficient(t *testing.T) {
	result := CheckFreeSpace("test", t.TempDir(), math.MaxUint64)
	if result.Passed {
		t.Fatal("expected failure for impossible floor")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckFreeSpace_MissingPath(t *testing.T) {
	result := CheckFreeSpace("test", filepath.Join(t.TempDir(), "nope"), 1)
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckChatSource_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckChatSource(context.Background(), srv.URL, "good-token")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckChatSource_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckChatSource(context.Background(), srv.URL, "bad-token")
	if result.Passed {
		t.Fatal("expected failure for bad token")
	}
}

func TestCheckChatSource_MissingURL(t *testing.T) {
	result := CheckChatSource(context.Background(), "", "token")
	if result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LibraryDir = t.TempDir()
	cfg.VOD.ChatSourceURL = ""

	results := RunAll(context.Background(), &cfg)
	// Work directory access + free space + clip library
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_IncludesChatSourceWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LibraryDir = ""
	cfg.VOD.ChatSourceURL = srv.URL
	cfg.VOD.SourceAPIToken = "test"

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Chat source" {
			found = true
			if !r.Passed {
				t.Errorf("chat source check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected chat source check in results")
	}
}

func TestCheckSystemDepsGatesUvxOnCaptions(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.CaptionsEnabled = false
	statuses := CheckSystemDeps(context.Background(), &cfg)
	for _, status := range statuses {
		if status.Name == "uvx" {
			t.Fatal("uvx should not be required with captions disabled")
		}
	}

	cfg.Pipeline.CaptionsEnabled = true
	statuses = CheckSystemDeps(context.Background(), &cfg)
	found := false
	for _, status := range statuses {
		if status.Name == "uvx" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected uvx requirement with captions enabled")
	}
}

func TestCheckChatSourceFromConfig(t *testing.T) {
	if result := CheckChatSourceFromConfig(nil); result.Passed {
		t.Fatal("expected nil config to report unknown")
	}

	cfg := config.Default()
	cfg.VOD.ChatSourceURL = ""
	result := CheckChatSourceFromConfig(&cfg)
	if !result.Passed {
		t.Fatalf("expected unconfigured source to pass, got: %s", result.Detail)
	}
	if result.Detail != "Not configured" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestGPUDetail(t *testing.T) {
	if detail := (GPUProbe{}).GPUDetail(); detail != "No CUDA device detected" {
		t.Fatalf("unexpected detail for missing GPU: %s", detail)
	}
	probe := GPUProbe{Detected: true, Name: "NVIDIA GeForce RTX 4070", Driver: "560.35.03"}
	if detail := probe.GPUDetail(); detail != "NVIDIA GeForce RTX 4070 (driver 560.35.03)" {
		t.Fatalf("unexpected detail: %s", detail)
	}
	probe.Driver = ""
	if detail := probe.GPUDetail(); detail != "NVIDIA GeForce RTX 4070" {
		t.Fatalf("unexpected detail without driver: %s", detail)
	}
}

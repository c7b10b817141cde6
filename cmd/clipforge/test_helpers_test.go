package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

type noopStage struct {
	name string
}

func (s noopStage) Name() string { return s.name }
func (s noopStage) Execute(_ context.Context, pc pipeline.Context) (pipeline.Context, error) {
	return pc, nil
}
func (noopStage) Retryable() bool { return false }
func (noopStage) MaxRetries() int { return 0 }

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	server     *api.Server
	configPath string
	baseDir    string
	logPath    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	logPath := logging.FilePath(cfg)
	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(logPath, nil, 0o644); err != nil {
			t.Fatalf("create log file: %v", err)
		}
	}

	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Download: noopStage{name: "download"},
		Analysis: noopStage{name: "analyze"},
		Upload:   noopStage{name: "upload"},
	})

	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	srv, err := api.NewServer(cfg, d, store, logger)
	if err != nil {
		t.Fatalf("api.NewServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("api server start: %v", err)
	}
	// The CLI dials whatever api_bind the config file carries, so it has to
	// hold the port the listener actually got.
	cfg.Paths.APIBind = srv.Addr()

	configPath := filepath.Join(homeDir, ".config", "clipforge", "config.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		configPath: configPath,
		baseDir:    base,
		logPath:    logPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Stop()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

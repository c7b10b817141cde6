package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	WorkDir    string `toml:"work_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// VOD contains configuration for fetching recordings and their metadata.
type VOD struct {
	YtdlpBinary     string `toml:"ytdlp_binary"`
	DownloadFormat  string `toml:"download_format"`
	DownloadTimeout int    `toml:"download_timeout"`
	ChatSourceURL   string `toml:"chat_source_url"`
	ClipsSourceURL  string `toml:"clips_source_url"`
	SourceAPIToken  string `toml:"source_api_token"`
	RequestTimeout  int    `toml:"request_timeout"`
	CacheEnabled    bool   `toml:"cache_enabled"`
	CacheTTLHours   int    `toml:"cache_ttl_hours"`
}

// AudioSignals contains tuning for loudness moment detection.
type AudioSignals struct {
	WindowSize       float64 `toml:"window_size"`
	PeakThreshold    float64 `toml:"peak_threshold"`
	SilenceThreshold float64 `toml:"silence_threshold"`
	MinGap           float64 `toml:"min_gap"`
}

// ChatSignals contains tuning for chat activity moment detection.
type ChatSignals struct {
	WindowSize  float64 `toml:"window_size"`
	StepSize    float64 `toml:"step_size"`
	MinVelocity float64 `toml:"min_velocity"`
	EmoteWeight float64 `toml:"emote_weight"`
}

// FusionSignals contains tuning for combining signal sources into moments.
type FusionSignals struct {
	ChatWeight        float64 `toml:"chat_weight"`
	AudioWeight       float64 `toml:"audio_weight"`
	ClipsWeight       float64 `toml:"clips_weight"`
	PreRoll           float64 `toml:"pre_roll"`
	PostRoll          float64 `toml:"post_roll"`
	MinDuration       float64 `toml:"min_duration"`
	MaxDuration       float64 `toml:"max_duration"`
	MinScore          float64 `toml:"min_score"`
	ConvergenceBonus  float64 `toml:"convergence_bonus"`
	ConvergenceWindow float64 `toml:"convergence_window"`
	MaxClips          int     `toml:"max_clips"`
}

// Signals groups the per-analyzer tuning sections.
type Signals struct {
	Audio  AudioSignals  `toml:"audio"`
	Chat   ChatSignals   `toml:"chat"`
	Fusion FusionSignals `toml:"fusion"`
}

// Pipeline contains orchestration and per-stage processing settings.
type Pipeline struct {
	MaxRetries         int    `toml:"max_retries"`
	RetryDelaySeconds  int    `toml:"retry_delay_seconds"`
	CleanupOnFailure   bool   `toml:"cleanup_on_failure"`
	ExtractConcurrency int    `toml:"extract_concurrency"`
	ClipQuality        string `toml:"clip_quality"`
	TargetAspect       string `toml:"target_aspect"`
	CaptionsEnabled    bool   `toml:"captions_enabled"`
	WhisperModel       string `toml:"whisper_model"`
	CaptionLanguage    string `toml:"caption_language"`
	PublicBaseURL      string `toml:"public_base_url"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	JobQueued          bool   `toml:"job_queued"`
	JobStarted         bool   `toml:"job_started"`
	JobCompleted       bool   `toml:"job_completed"`
	JobFailed          bool   `toml:"job_failed"`
	QueueCompleted     bool   `toml:"queue_completed"`
	QueueMinItems      int    `toml:"queue_min_items"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for ClipForge.
//
// Configuration sections by subsystem:
//   - Paths: data/work/library/log directories and API bind address
//   - VOD: recording download and chat/clip metadata sources
//   - Signals: audio, chat, and fusion analyzer tuning
//   - Pipeline: retry policy and per-stage processing settings
//   - Workflow: daemon polling intervals and timeouts
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	VOD           VOD           `toml:"vod"`
	Signals       Signals       `toml:"signals"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/clipforge/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the job queue database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// VODCachePath returns the location of the chat/clip metadata cache.
func (c *Config) VODCachePath() string {
	return filepath.Join(c.Paths.DataDir, "vodcache")
}

// YtdlpBinary returns the yt-dlp executable name.
func (c *Config) YtdlpBinary() string {
	if binary := strings.TrimSpace(c.VOD.YtdlpBinary); binary != "" {
		return binary
	}
	return "yt-dlp"
}

// FFmpegBinary returns the ffmpeg executable name used for media processing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

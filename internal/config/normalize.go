package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVOD()
	c.normalizeSignals()
	c.normalizePipeline()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeVOD() {
	c.VOD.YtdlpBinary = strings.TrimSpace(c.VOD.YtdlpBinary)
	c.VOD.DownloadFormat = strings.TrimSpace(c.VOD.DownloadFormat)
	if c.VOD.DownloadFormat == "" {
		c.VOD.DownloadFormat = defaultDownloadFormat
	}
	if c.VOD.DownloadTimeout <= 0 {
		c.VOD.DownloadTimeout = defaultDownloadTimeout
	}
	c.VOD.ChatSourceURL = strings.TrimRight(strings.TrimSpace(c.VOD.ChatSourceURL), "/")
	c.VOD.ClipsSourceURL = strings.TrimRight(strings.TrimSpace(c.VOD.ClipsSourceURL), "/")
	c.VOD.SourceAPIToken = strings.TrimSpace(c.VOD.SourceAPIToken)
	if c.VOD.SourceAPIToken == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_SOURCE_API_TOKEN"); ok {
			c.VOD.SourceAPIToken = strings.TrimSpace(value)
		}
	}
	if c.VOD.RequestTimeout <= 0 {
		c.VOD.RequestTimeout = defaultRequestTimeout
	}
	if c.VOD.CacheTTLHours <= 0 {
		c.VOD.CacheTTLHours = defaultCacheTTLHours
	}
}

func (c *Config) normalizeSignals() {
	defaults := Default().Signals
	if c.Signals.Audio.WindowSize <= 0 {
		c.Signals.Audio.WindowSize = defaults.Audio.WindowSize
	}
	if c.Signals.Audio.PeakThreshold <= 0 {
		c.Signals.Audio.PeakThreshold = defaults.Audio.PeakThreshold
	}
	if c.Signals.Audio.SilenceThreshold <= 0 {
		c.Signals.Audio.SilenceThreshold = defaults.Audio.SilenceThreshold
	}
	if c.Signals.Audio.MinGap <= 0 {
		c.Signals.Audio.MinGap = defaults.Audio.MinGap
	}
	if c.Signals.Chat.WindowSize <= 0 {
		c.Signals.Chat.WindowSize = defaults.Chat.WindowSize
	}
	if c.Signals.Chat.StepSize <= 0 {
		c.Signals.Chat.StepSize = defaults.Chat.StepSize
	}
	if c.Signals.Chat.MinVelocity <= 0 {
		c.Signals.Chat.MinVelocity = defaults.Chat.MinVelocity
	}
	if c.Signals.Chat.EmoteWeight <= 0 {
		c.Signals.Chat.EmoteWeight = defaults.Chat.EmoteWeight
	}
	if c.Signals.Fusion.PreRoll <= 0 {
		c.Signals.Fusion.PreRoll = defaults.Fusion.PreRoll
	}
	if c.Signals.Fusion.PostRoll <= 0 {
		c.Signals.Fusion.PostRoll = defaults.Fusion.PostRoll
	}
	if c.Signals.Fusion.MinDuration <= 0 {
		c.Signals.Fusion.MinDuration = defaults.Fusion.MinDuration
	}
	if c.Signals.Fusion.MaxDuration <= 0 {
		c.Signals.Fusion.MaxDuration = defaults.Fusion.MaxDuration
	}
	if c.Signals.Fusion.MinScore <= 0 {
		c.Signals.Fusion.MinScore = defaults.Fusion.MinScore
	}
	if c.Signals.Fusion.ConvergenceBonus < 0 {
		c.Signals.Fusion.ConvergenceBonus = defaults.Fusion.ConvergenceBonus
	}
	if c.Signals.Fusion.ConvergenceWindow <= 0 {
		c.Signals.Fusion.ConvergenceWindow = defaults.Fusion.ConvergenceWindow
	}
	if c.Signals.Fusion.MaxClips <= 0 {
		c.Signals.Fusion.MaxClips = defaults.Fusion.MaxClips
	}
	// Weights of zero are legal individually (a source can be switched off),
	// but an all-zero weight set is replaced with the defaults.
	if c.Signals.Fusion.ChatWeight <= 0 && c.Signals.Fusion.AudioWeight <= 0 && c.Signals.Fusion.ClipsWeight <= 0 {
		c.Signals.Fusion.ChatWeight = defaults.Fusion.ChatWeight
		c.Signals.Fusion.AudioWeight = defaults.Fusion.AudioWeight
		c.Signals.Fusion.ClipsWeight = defaults.Fusion.ClipsWeight
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MaxRetries < 0 {
		c.Pipeline.MaxRetries = defaultMaxRetries
	}
	if c.Pipeline.RetryDelaySeconds <= 0 {
		c.Pipeline.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if c.Pipeline.ExtractConcurrency <= 0 {
		c.Pipeline.ExtractConcurrency = defaultExtractConcurrency
	}
	c.Pipeline.ClipQuality = strings.ToLower(strings.TrimSpace(c.Pipeline.ClipQuality))
	if c.Pipeline.ClipQuality == "" {
		c.Pipeline.ClipQuality = defaultClipQuality
	}
	c.Pipeline.TargetAspect = strings.TrimSpace(c.Pipeline.TargetAspect)
	if c.Pipeline.TargetAspect == "" {
		c.Pipeline.TargetAspect = defaultTargetAspect
	}
	c.Pipeline.WhisperModel = strings.TrimSpace(c.Pipeline.WhisperModel)
	if c.Pipeline.WhisperModel == "" {
		c.Pipeline.WhisperModel = defaultWhisperModel
	}
	c.Pipeline.CaptionLanguage = strings.ToLower(strings.TrimSpace(c.Pipeline.CaptionLanguage))
	c.Pipeline.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Pipeline.PublicBaseURL), "/")
	if c.Pipeline.PublicBaseURL == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_PUBLIC_BASE_URL"); ok {
			c.Pipeline.PublicBaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

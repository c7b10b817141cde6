package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVOD(); err != nil {
		return err
	}
	if err := c.validateSignals(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVOD() error {
	if err := ensurePositiveMap(map[string]int{
		"vod.download_timeout": c.VOD.DownloadTimeout,
		"vod.request_timeout":  c.VOD.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.VOD.CacheEnabled && c.VOD.CacheTTLHours <= 0 {
		return errors.New("vod.cache_ttl_hours must be positive when vod.cache_enabled is true")
	}
	return nil
}

func (c *Config) validateSignals() error {
	audio := c.Signals.Audio
	if audio.WindowSize <= 0 {
		return errors.New("signals.audio.window_size must be positive")
	}
	if audio.PeakThreshold <= 0 || audio.PeakThreshold > 1 {
		return errors.New("signals.audio.peak_threshold must be between 0 and 1")
	}
	if audio.SilenceThreshold <= 0 || audio.SilenceThreshold >= audio.PeakThreshold {
		return errors.New("signals.audio.silence_threshold must be positive and below peak_threshold")
	}
	if audio.MinGap <= 0 {
		return errors.New("signals.audio.min_gap must be positive")
	}

	chat := c.Signals.Chat
	if chat.WindowSize <= 0 {
		return errors.New("signals.chat.window_size must be positive")
	}
	if chat.StepSize <= 0 || chat.StepSize > chat.WindowSize {
		return errors.New("signals.chat.step_size must be positive and no larger than window_size")
	}
	if chat.MinVelocity <= 0 {
		return errors.New("signals.chat.min_velocity must be positive")
	}
	if chat.EmoteWeight < 0 {
		return errors.New("signals.chat.emote_weight must be >= 0")
	}

	fusion := c.Signals.Fusion
	if fusion.ChatWeight < 0 || fusion.AudioWeight < 0 || fusion.ClipsWeight < 0 {
		return errors.New("signals.fusion weights must be >= 0")
	}
	if fusion.MinDuration <= 0 {
		return errors.New("signals.fusion.min_duration must be positive")
	}
	if fusion.MaxDuration < fusion.MinDuration {
		return errors.New("signals.fusion.max_duration must be >= min_duration")
	}
	if fusion.MinScore < 0 || fusion.MinScore > 100 {
		return errors.New("signals.fusion.min_score must be between 0 and 100")
	}
	if fusion.ConvergenceWindow <= 0 {
		return errors.New("signals.fusion.convergence_window must be positive")
	}
	if fusion.MaxClips <= 0 {
		return errors.New("signals.fusion.max_clips must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxRetries < 0 {
		return errors.New("pipeline.max_retries must be >= 0")
	}
	if c.Pipeline.RetryDelaySeconds <= 0 {
		return errors.New("pipeline.retry_delay_seconds must be positive")
	}
	if c.Pipeline.ExtractConcurrency <= 0 {
		return errors.New("pipeline.extract_concurrency must be positive")
	}
	switch c.Pipeline.ClipQuality {
	case "source", "high", "medium":
	default:
		return fmt.Errorf("pipeline.clip_quality must be one of source, high, medium (got %q)", c.Pipeline.ClipQuality)
	}
	if err := validateAspect(c.Pipeline.TargetAspect); err != nil {
		return err
	}
	if c.Pipeline.CaptionsEnabled && strings.TrimSpace(c.Pipeline.WhisperModel) == "" {
		return errors.New("pipeline.whisper_model must be set when pipeline.captions_enabled is true")
	}
	return nil
}

func validateAspect(aspect string) error {
	parts := strings.Split(aspect, ":")
	if len(parts) != 2 {
		return fmt.Errorf("pipeline.target_aspect must look like \"9:16\" (got %q)", aspect)
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("pipeline.target_aspect must look like \"9:16\" (got %q)", aspect)
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return fmt.Errorf("pipeline.target_aspect must look like \"9:16\" (got %q)", aspect)
			}
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.QueueMinItems < 1 {
		return errors.New("notifications.queue_min_items must be >= 1")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

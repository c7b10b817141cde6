package config

const (
	defaultDataDir                   = "~/.local/share/clipforge"
	defaultWorkDir                   = "~/.local/share/clipforge/work"
	defaultLibraryDir                = "~/clips"
	defaultLogDir                    = "~/.local/share/clipforge/logs"
	defaultAPIBind                   = "127.0.0.1:8632"
	defaultDownloadFormat            = "bestvideo[height<=1080]+bestaudio/best[height<=1080]"
	defaultDownloadTimeout           = 3600
	defaultRequestTimeout            = 30
	defaultCacheTTLHours             = 24
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultMaxRetries                = 3
	defaultRetryDelaySeconds         = 5
	defaultExtractConcurrency        = 2
	defaultClipQuality               = "high"
	defaultTargetAspect              = "9:16"
	defaultWhisperModel              = "small"
	defaultPublicBaseURL             = ""
	defaultWorkflowQueuePollInterval = 5
	defaultWorkflowErrorRetry        = 10
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultNotifyRequestTimeout      = 10
	defaultNotifyQueueMinItems       = 2
	defaultNotifyDedupWindowSeconds  = 600
	defaultFusionMaxClips            = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			WorkDir:    defaultWorkDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		VOD: VOD{
			DownloadFormat:  defaultDownloadFormat,
			DownloadTimeout: defaultDownloadTimeout,
			RequestTimeout:  defaultRequestTimeout,
			CacheEnabled:    true,
			CacheTTLHours:   defaultCacheTTLHours,
		},
		Signals: Signals{
			Audio: AudioSignals{
				WindowSize:       1.0,
				PeakThreshold:    0.6,
				SilenceThreshold: 0.05,
				MinGap:           10.0,
			},
			Chat: ChatSignals{
				WindowSize:  5.0,
				StepSize:    2.5,
				MinVelocity: 5,
				EmoteWeight: 0.4,
			},
			Fusion: FusionSignals{
				ChatWeight:        0.4,
				AudioWeight:       0.4,
				ClipsWeight:       0.2,
				PreRoll:           5,
				PostRoll:          15,
				MinDuration:       15,
				MaxDuration:       60,
				MinScore:          40,
				ConvergenceBonus:  20,
				ConvergenceWindow: 5,
				MaxClips:          defaultFusionMaxClips,
			},
		},
		Pipeline: Pipeline{
			MaxRetries:         defaultMaxRetries,
			RetryDelaySeconds:  defaultRetryDelaySeconds,
			CleanupOnFailure:   true,
			ExtractConcurrency: defaultExtractConcurrency,
			ClipQuality:        defaultClipQuality,
			TargetAspect:       defaultTargetAspect,
			CaptionsEnabled:    true,
			WhisperModel:       defaultWhisperModel,
			PublicBaseURL:      defaultPublicBaseURL,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultWorkflowQueuePollInterval,
			ErrorRetryInterval: defaultWorkflowErrorRetry,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			JobQueued:          true,
			JobStarted:         true,
			JobCompleted:       true,
			JobFailed:          true,
			QueueCompleted:     true,
			QueueMinItems:      defaultNotifyQueueMinItems,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

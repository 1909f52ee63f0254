package config

const (
	defaultConfigPath              = "~/.config/contentflow/config.toml"
	defaultStagingDir              = "~/.local/share/contentflow/staging"
	defaultDataDir                 = "~/.local/share/contentflow"
	defaultLogDir                  = "~/.local/share/contentflow/logs"
	defaultLogRetentionDays        = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultLLMBaseURL              = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel                = "gpt-3.5-turbo"
	defaultLLMTemperature          = 0.7
	defaultLLMMaxTokens            = 300
	defaultLLMTimeoutSeconds       = 60
	defaultImageBaseURL            = "https://picsum.photos"
	defaultImageWidth              = 800
	defaultImageHeight             = 600
	defaultImageTimeoutSeconds     = 30
	defaultSpeechBinary            = "espeak-ng"
	defaultSpeechVoice             = "en"
	defaultSpeechWordsPerMinute    = 150
	defaultSpeechTimeoutSeconds    = 120
	defaultFFmpegBinary            = "ffmpeg"
	defaultVideoWidth              = 1280
	defaultVideoHeight             = 720
	defaultVideoDurationSeconds    = 10
	defaultVideoAccentColor        = "#4f46e5"
	defaultVideoBranding           = "Created with SmartContent Flow"
	defaultVideoTimeoutSeconds     = 300
	defaultPublishingMethod        = "make"
	defaultShareURL                = "https://smartcontentflow.app"
	defaultPublishingTimeout       = 30
	defaultBreakerFailureThreshold = 3
	defaultBreakerFailureWindow    = 5
	defaultBreakerDelaySeconds     = 60
	defaultLinkedInAuthBaseURL     = "https://www.linkedin.com"
	defaultLinkedInAPIBaseURL      = "https://api.linkedin.com"
	defaultBufferBaseURL           = "https://api.bufferapp.com/1"
	defaultNotifyRequestTimeout    = 10
	defaultNotifyQueueMinItems     = 2
	defaultQueuePollInterval       = 5
	defaultHeartbeatInterval       = 15
	defaultHeartbeatTimeout        = 120

	minAPIKeyLength = 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Image: Image{
			BaseURL:        defaultImageBaseURL,
			Width:          defaultImageWidth,
			Height:         defaultImageHeight,
			TimeoutSeconds: defaultImageTimeoutSeconds,
		},
		Speech: Speech{
			Binary:         defaultSpeechBinary,
			Voice:          defaultSpeechVoice,
			Rate:           1.0,
			Pitch:          1.0,
			Volume:         1.0,
			WordsPerMinute: defaultSpeechWordsPerMinute,
			TimeoutSeconds: defaultSpeechTimeoutSeconds,
		},
		Video: Video{
			FFmpegBinary:    defaultFFmpegBinary,
			Width:           defaultVideoWidth,
			Height:          defaultVideoHeight,
			DurationSeconds: defaultVideoDurationSeconds,
			AccentColor:     defaultVideoAccentColor,
			Branding:        defaultVideoBranding,
			TimeoutSeconds:  defaultVideoTimeoutSeconds,
		},
		Publishing: Publishing{
			DefaultMethod:           defaultPublishingMethod,
			ShareURL:                defaultShareURL,
			RequestTimeout:          defaultPublishingTimeout,
			BreakerFailureThreshold: defaultBreakerFailureThreshold,
			BreakerFailureWindow:    defaultBreakerFailureWindow,
			BreakerDelaySeconds:     defaultBreakerDelaySeconds,
		},
		LinkedIn: LinkedIn{
			AuthBaseURL: defaultLinkedInAuthBaseURL,
			APIBaseURL:  defaultLinkedInAPIBaseURL,
		},
		Buffer: Buffer{
			BaseURL: defaultBufferBaseURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Published:      true,
			Errors:         true,
			Queue:          true,
			QueueMinItems:  defaultNotifyQueueMinItems,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

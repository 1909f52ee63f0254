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
	c.normalizeLLM()
	c.normalizeImage()
	c.normalizeSpeech()
	if err := c.normalizeVideo(); err != nil {
		return err
	}
	c.normalizePublishing()
	c.normalizeLinkedIn()
	c.normalizeBuffer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
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
		c.Paths.APIToken = envValue("CONTENTFLOW_API_TOKEN")
	}
	c.Paths.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Paths.PublicBaseURL), "/")
	if c.Paths.PublicBaseURL == "" {
		c.Paths.PublicBaseURL = "http://" + c.Paths.APIBind
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = envValue("OPENAI_API_KEY")
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
}

func (c *Config) normalizeImage() {
	c.Image.BaseURL = strings.TrimRight(strings.TrimSpace(c.Image.BaseURL), "/")
	if c.Image.BaseURL == "" {
		c.Image.BaseURL = defaultImageBaseURL
	}
	if c.Image.Width <= 0 {
		c.Image.Width = defaultImageWidth
	}
	if c.Image.Height <= 0 {
		c.Image.Height = defaultImageHeight
	}
	if c.Image.TimeoutSeconds <= 0 {
		c.Image.TimeoutSeconds = defaultImageTimeoutSeconds
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.Binary = strings.TrimSpace(c.Speech.Binary)
	if c.Speech.Binary == "" {
		c.Speech.Binary = defaultSpeechBinary
	}
	c.Speech.Voice = strings.TrimSpace(c.Speech.Voice)
	if c.Speech.Voice == "" {
		c.Speech.Voice = defaultSpeechVoice
	}
	if c.Speech.WordsPerMinute <= 0 {
		c.Speech.WordsPerMinute = defaultSpeechWordsPerMinute
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeoutSeconds
	}
}

func (c *Config) normalizeVideo() error {
	c.Video.FFmpegBinary = strings.TrimSpace(c.Video.FFmpegBinary)
	if c.Video.FFmpegBinary == "" {
		c.Video.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Video.Width <= 0 {
		c.Video.Width = defaultVideoWidth
	}
	if c.Video.Height <= 0 {
		c.Video.Height = defaultVideoHeight
	}
	if c.Video.DurationSeconds <= 0 {
		c.Video.DurationSeconds = defaultVideoDurationSeconds
	}
	c.Video.AccentColor = strings.TrimSpace(c.Video.AccentColor)
	if c.Video.AccentColor == "" {
		c.Video.AccentColor = defaultVideoAccentColor
	}
	c.Video.Branding = strings.TrimSpace(c.Video.Branding)
	if c.Video.Branding == "" {
		c.Video.Branding = defaultVideoBranding
	}
	if c.Video.TimeoutSeconds <= 0 {
		c.Video.TimeoutSeconds = defaultVideoTimeoutSeconds
	}
	if strings.TrimSpace(c.Video.FontFile) != "" {
		var err error
		if c.Video.FontFile, err = expandPath(c.Video.FontFile); err != nil {
			return fmt.Errorf("video.font_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePublishing() {
	c.Publishing.DefaultMethod = strings.ToLower(strings.TrimSpace(c.Publishing.DefaultMethod))
	if c.Publishing.DefaultMethod == "" {
		c.Publishing.DefaultMethod = defaultPublishingMethod
	}
	c.Publishing.MakeWebhookURL = strings.TrimSpace(c.Publishing.MakeWebhookURL)
	if c.Publishing.MakeWebhookURL == "" {
		c.Publishing.MakeWebhookURL = envValue("MAKE_WEBHOOK_URL")
	}
	c.Publishing.ZapierWebhookURL = strings.TrimSpace(c.Publishing.ZapierWebhookURL)
	if c.Publishing.ZapierWebhookURL == "" {
		c.Publishing.ZapierWebhookURL = envValue("ZAPIER_WEBHOOK_URL")
	}
	c.Publishing.ShareURL = strings.TrimSpace(c.Publishing.ShareURL)
	if c.Publishing.ShareURL == "" {
		c.Publishing.ShareURL = defaultShareURL
	}
	if c.Publishing.RequestTimeout <= 0 {
		c.Publishing.RequestTimeout = defaultPublishingTimeout
	}
}

func (c *Config) normalizeLinkedIn() {
	c.LinkedIn.ClientID = strings.TrimSpace(c.LinkedIn.ClientID)
	if c.LinkedIn.ClientID == "" {
		c.LinkedIn.ClientID = envValue("LINKEDIN_CLIENT_ID")
	}
	c.LinkedIn.ClientSecret = strings.TrimSpace(c.LinkedIn.ClientSecret)
	if c.LinkedIn.ClientSecret == "" {
		c.LinkedIn.ClientSecret = envValue("LINKEDIN_CLIENT_SECRET")
	}
	c.LinkedIn.RedirectURI = strings.TrimSpace(c.LinkedIn.RedirectURI)
	c.LinkedIn.AuthorURN = strings.TrimSpace(c.LinkedIn.AuthorURN)
	c.LinkedIn.AuthBaseURL = strings.TrimRight(strings.TrimSpace(c.LinkedIn.AuthBaseURL), "/")
	if c.LinkedIn.AuthBaseURL == "" {
		c.LinkedIn.AuthBaseURL = defaultLinkedInAuthBaseURL
	}
	c.LinkedIn.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.LinkedIn.APIBaseURL), "/")
	if c.LinkedIn.APIBaseURL == "" {
		c.LinkedIn.APIBaseURL = defaultLinkedInAPIBaseURL
	}
}

func (c *Config) normalizeBuffer() {
	c.Buffer.AccessToken = strings.TrimSpace(c.Buffer.AccessToken)
	if c.Buffer.AccessToken == "" {
		c.Buffer.AccessToken = envValue("BUFFER_ACCESS_TOKEN")
	}
	c.Buffer.BaseURL = strings.TrimRight(strings.TrimSpace(c.Buffer.BaseURL), "/")
	if c.Buffer.BaseURL == "" {
		c.Buffer.BaseURL = defaultBufferBaseURL
	}
	if len(c.Buffer.Profiles) > 0 {
		profiles := make(map[string]string, len(c.Buffer.Profiles))
		for platform, id := range c.Buffer.Profiles {
			key := strings.ToLower(strings.TrimSpace(platform))
			id = strings.TrimSpace(id)
			if key == "" || id == "" {
				continue
			}
			profiles[key] = id
		}
		c.Buffer.Profiles = profiles
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
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func envValue(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

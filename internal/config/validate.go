package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validatePublishing(); err != nil {
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

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if err := validateURL("llm.base_url", c.LLM.BaseURL); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSpeech() error {
	if c.Speech.Rate < 0.1 || c.Speech.Rate > 10 {
		return errors.New("speech.rate must be between 0.1 and 10")
	}
	if c.Speech.Pitch < 0 || c.Speech.Pitch > 2 {
		return errors.New("speech.pitch must be between 0 and 2")
	}
	if c.Speech.Volume < 0 || c.Speech.Volume > 1 {
		return errors.New("speech.volume must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.New("video.width and video.height must be positive")
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		return errors.New("video.width and video.height must be even for yuv420p output")
	}
	if !hexColorPattern.MatchString(c.Video.AccentColor) {
		return fmt.Errorf("video.accent_color %q must be a #rrggbb color", c.Video.AccentColor)
	}
	return nil
}

func (c *Config) validatePublishing() error {
	switch c.Publishing.DefaultMethod {
	case "direct", "make", "zapier", "buffer":
	default:
		return fmt.Errorf("publishing.default_method %q must be one of direct, make, zapier, buffer", c.Publishing.DefaultMethod)
	}
	if c.Publishing.MakeWebhookURL != "" {
		if err := validateURL("publishing.make_webhook_url", c.Publishing.MakeWebhookURL); err != nil {
			return err
		}
	}
	if c.Publishing.ZapierWebhookURL != "" {
		if err := validateURL("publishing.zapier_webhook_url", c.Publishing.ZapierWebhookURL); err != nil {
			return err
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"publishing.breaker_failure_threshold": c.Publishing.BreakerFailureThreshold,
		"publishing.breaker_failure_window":    c.Publishing.BreakerFailureWindow,
		"publishing.breaker_delay_seconds":     c.Publishing.BreakerDelaySeconds,
	}); err != nil {
		return err
	}
	if c.Publishing.BreakerFailureThreshold > c.Publishing.BreakerFailureWindow {
		return errors.New("publishing.breaker_failure_threshold must not exceed publishing.breaker_failure_window")
	}
	if (c.LinkedIn.ClientID == "") != (c.LinkedIn.ClientSecret == "") {
		return errors.New("linkedin.client_id and linkedin.client_secret must be set together")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval": c.Workflow.QueuePollInterval,
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
	return nil
}

func validateURL(key, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
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

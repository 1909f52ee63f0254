package api

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"

	"contentflow/internal/content"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
)

// SettingsStore persists runtime settings such as webhook URLs.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Poster is the relay surface the publishing service drives.
type Poster interface {
	Publish(ctx context.Context, method relay.Method, post relay.Post) (relay.Result, error)
	DefaultMethod() relay.Method
	AvailableMethods(ctx context.Context, platform content.Platform) []relay.Method
	IsPlatformConnected(ctx context.Context, platform content.Platform) bool
	BreakerState(method relay.Method) string
}

// PublishingService exposes relay configuration and ad-hoc posting.
type PublishingService struct {
	settings        SettingsStore
	poster          Poster
	makeFallbackURL string
	now             func() time.Time
}

// NewPublishingService constructs the service. makeFallbackURL is the
// webhook from the config file, reported when nothing was saved at runtime.
func NewPublishingService(settings SettingsStore, poster Poster, makeFallbackURL string) *PublishingService {
	return &PublishingService{
		settings:        settings,
		poster:          poster,
		makeFallbackURL: strings.TrimSpace(makeFallbackURL),
		now:             time.Now,
	}
}

// MakeWebhook returns the effective Make.com webhook URL.
func (s *PublishingService) MakeWebhook(ctx context.Context) (WebhookConfig, error) {
	value, ok, err := s.settings.GetSetting(ctx, queue.SettingMakeWebhookURL)
	if err != nil {
		return WebhookConfig{}, err
	}
	if !ok || strings.TrimSpace(value) == "" {
		value = s.makeFallbackURL
	}
	return WebhookConfig{Success: true, WebhookURL: strings.TrimSpace(value)}, nil
}

// SetMakeWebhook saves the Make.com webhook URL.
func (s *PublishingService) SetMakeWebhook(ctx context.Context, webhookURL string) (WebhookConfig, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return WebhookConfig{}, validationError("set webhook", "missing_parameters", "Webhook URL is required")
	}
	parsed, err := url.Parse(webhookURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return WebhookConfig{}, validationError("set webhook", "invalid_webhook_url", "Webhook URL must be an absolute http(s) URL")
	}
	if err := s.settings.PutSetting(ctx, queue.SettingMakeWebhookURL, webhookURL); err != nil {
		return WebhookConfig{}, err
	}
	return WebhookConfig{Success: true, WebhookURL: webhookURL, Message: "Make.com webhook URL saved successfully"}, nil
}

// Methods lists every relay with its availability for platform.
func (s *PublishingService) Methods(ctx context.Context, platformName string) (PublishingMethodsResponse, error) {
	platform, err := content.ParsePlatform(platformName)
	if err != nil {
		return PublishingMethodsResponse{}, validationError("list methods", "missing_parameters", err.Error())
	}
	available := s.poster.AvailableMethods(ctx, platform)
	resp := PublishingMethodsResponse{
		Platform:  string(platform),
		Connected: s.poster.IsPlatformConnected(ctx, platform),
	}
	for _, method := range relay.Methods() {
		resp.Methods = append(resp.Methods, PublishingMethod{
			Method:    string(method),
			Available: slices.Contains(available, method),
			Default:   method == s.poster.DefaultMethod(),
			Breaker:   s.poster.BreakerState(method),
		})
	}
	return resp, nil
}

// Post publishes an ad-hoc message without creating a queue item.
func (s *PublishingService) Post(ctx context.Context, req PostRequest) (PostResponse, error) {
	message := strings.TrimSpace(req.Message)
	if strings.TrimSpace(req.Platform) == "" || message == "" {
		return PostResponse{}, validationError("post", "missing_parameters", "Missing required fields")
	}
	platform, err := content.ParsePlatform(req.Platform)
	if err != nil {
		return PostResponse{}, validationError("post", "missing_parameters", err.Error())
	}
	if err := content.Validate(platform, req.Message); err != nil {
		code := "content_invalid"
		var limitErr *content.LimitError
		if errors.As(err, &limitErr) {
			code = "content_too_long"
		}
		return PostResponse{}, validationError("post", code, err.Error())
	}
	method := s.poster.DefaultMethod()
	if strings.TrimSpace(req.Method) != "" {
		method, err = relay.ParseMethod(req.Method)
		if err != nil {
			return PostResponse{}, validationError("post", "unknown_posting_method", err.Error())
		}
	}

	result, err := s.poster.Publish(ctx, method, relay.Post{
		Platform: platform,
		Text:     req.Message,
		ImageURL: strings.TrimSpace(req.ImageURL),
		Hashtags: content.ExtractHashtags(req.Message),
	})
	if err != nil {
		return PostResponse{}, err
	}
	return PostResponse{
		Success:   result.Success,
		Message:   result.Message,
		PostID:    result.PostID,
		PostURL:   result.PostURL,
		Timestamp: FormatTime(s.now()),
	}, nil
}

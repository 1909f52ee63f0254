package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"contentflow/internal/content"
	"contentflow/internal/queue"
	"contentflow/internal/services"
)

// Settings is the part of the store relays read configuration from.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// webhookURL prefers the value saved through the API over the config file.
func webhookURL(ctx context.Context, settings Settings, key, fallback string) string {
	if settings != nil {
		if value, ok, err := settings.GetSetting(ctx, key); err == nil && ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(fallback)
}

// webhookReply picks identifiers out of a webhook response when the
// scenario returns any. Make answers "Accepted" by default.
type webhookReply struct {
	ID      string `json:"id"`
	PostID  string `json:"postId"`
	URL     string `json:"url"`
	PostURL string `json:"postUrl"`
}

func parseWebhookReply(method Method, body []byte) (string, string) {
	var reply webhookReply
	if err := json.Unmarshal(body, &reply); err == nil {
		id := firstNonEmpty(reply.PostID, reply.ID)
		link := firstNonEmpty(reply.PostURL, reply.URL)
		if id != "" {
			return id, link
		}
		return fmt.Sprintf("%s-%s", method, uuid.NewString()), link
	}
	return fmt.Sprintf("%s-%s", method, uuid.NewString()), ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// MakeRelay posts through a Make.com scenario webhook.
type MakeRelay struct {
	settings Settings
	fallback string
	shareURL string
	client   HTTPDoer
}

// NewMakeRelay constructs the Make.com relay.
func NewMakeRelay(settings Settings, fallbackURL, shareURL string, client HTTPDoer) *MakeRelay {
	return &MakeRelay{settings: settings, fallback: fallbackURL, shareURL: shareURL, client: client}
}

func (r *MakeRelay) Method() Method { return MethodMake }

func (r *MakeRelay) Configured(ctx context.Context, _ content.Platform) bool {
	return webhookURL(ctx, r.settings, queue.SettingMakeWebhookURL, r.fallback) != ""
}

func (r *MakeRelay) Publish(ctx context.Context, post Post) (Result, error) {
	target := webhookURL(ctx, r.settings, queue.SettingMakeWebhookURL, r.fallback)
	if target == "" {
		return Result{}, services.WithCode(services.Wrap(services.ErrConfiguration, stageName, string(MethodMake),
			"Make.com webhook URL not configured. Add your webhook URL in settings.", nil), "make_webhook_missing")
	}
	payload := map[string]any{
		"text":      post.Text,
		"url":       r.shareURL,
		"post_type": "text",
	}
	if post.ImageURL != "" {
		payload["post_type"] = "image"
		payload["image_url"] = post.ImageURL
	}
	req, err := jsonRequest(MethodMake, target, payload)
	if err != nil {
		return Result{}, err
	}
	body, _, err := send(ctx, r.client, req)
	if err != nil {
		return Result{}, err
	}
	id, link := parseWebhookReply(MethodMake, body)
	return Result{
		Success: true,
		Message: fmt.Sprintf("Successfully posted to %s!", post.Platform),
		PostID:  id,
		PostURL: link,
	}, nil
}

type zapierAction struct {
	action     string
	contentKey string
	mediaKey   string
}

var zapierActions = map[content.Platform]zapierAction{
	content.PlatformLinkedIn:  {action: "create_linkedin_post", contentKey: "post_content", mediaKey: "image_url"},
	content.PlatformInstagram: {action: "create_instagram_post", contentKey: "caption", mediaKey: "media_url"},
	content.PlatformTikTok:    {action: "post_tiktok_video", contentKey: "caption", mediaKey: "video_url"},
	content.PlatformTwitter:   {action: "create_tweet", contentKey: "text", mediaKey: "image_url"},
	content.PlatformFacebook:  {action: "create_facebook_post", contentKey: "message", mediaKey: "media_url"},
}

// ZapierRelay posts through a Zapier catch hook.
type ZapierRelay struct {
	settings Settings
	fallback string
	client   HTTPDoer
	now      func() time.Time
}

// NewZapierRelay constructs the Zapier relay.
func NewZapierRelay(settings Settings, fallbackURL string, client HTTPDoer) *ZapierRelay {
	return &ZapierRelay{settings: settings, fallback: fallbackURL, client: client, now: time.Now}
}

func (r *ZapierRelay) Method() Method { return MethodZapier }

func (r *ZapierRelay) Configured(ctx context.Context, platform content.Platform) bool {
	if _, ok := zapierActions[platform]; !ok {
		return false
	}
	return webhookURL(ctx, r.settings, queue.SettingZapierWebhookURL, r.fallback) != ""
}

// ZapierPayload builds the action data for platform.
func ZapierPayload(post Post, now time.Time) (map[string]any, error) {
	action, ok := zapierActions[post.Platform]
	if !ok {
		return nil, fmt.Errorf("Unsupported platform: %s", post.Platform)
	}
	tags := post.Hashtags
	if tags == nil {
		tags = []string{}
	}
	payload := map[string]any{
		"platform":        string(post.Platform),
		"action":          action.action,
		action.contentKey: post.Text,
		"post_tags":       tags,
		"timestamp":       now.UTC().Format(time.RFC3339),
		"visibility":      "anyone",
	}
	if post.ImageURL != "" {
		payload[action.mediaKey] = post.ImageURL
	}
	return payload, nil
}

func (r *ZapierRelay) Publish(ctx context.Context, post Post) (Result, error) {
	target := webhookURL(ctx, r.settings, queue.SettingZapierWebhookURL, r.fallback)
	if target == "" {
		return Result{}, services.WithCode(services.Wrap(services.ErrConfiguration, stageName, string(MethodZapier),
			"Zapier webhook URL not configured", nil), "zapier_webhook_missing")
	}
	payload, err := ZapierPayload(post, r.now())
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, stageName, string(MethodZapier), err.Error(), nil)
	}
	req, err := jsonRequest(MethodZapier, target, payload)
	if err != nil {
		return Result{}, err
	}
	body, _, err := send(ctx, r.client, req)
	if err != nil {
		return Result{}, err
	}
	id, link := parseWebhookReply(MethodZapier, body)
	return Result{
		Success: true,
		Message: fmt.Sprintf("Successfully posted to %s", post.Platform),
		PostID:  id,
		PostURL: link,
	}, nil
}

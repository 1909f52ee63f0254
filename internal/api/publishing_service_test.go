package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"contentflow/internal/content"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
	"contentflow/internal/services"
)

type memorySettings map[string]string

func (m memorySettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	value, ok := m[key]
	return value, ok, nil
}

func (m memorySettings) PutSetting(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

type stubPoster struct {
	posts  []relay.Post
	method relay.Method
	err    error
}

func (p *stubPoster) Publish(_ context.Context, method relay.Method, post relay.Post) (relay.Result, error) {
	p.method = method
	p.posts = append(p.posts, post)
	if p.err != nil {
		return relay.Result{}, p.err
	}
	return relay.Result{Success: true, Message: "Posted", PostID: "make-1", PostURL: "https://example.com/1"}, nil
}

func (p *stubPoster) DefaultMethod() relay.Method { return relay.MethodMake }

func (p *stubPoster) AvailableMethods(context.Context, content.Platform) []relay.Method {
	return []relay.Method{relay.MethodMake, relay.MethodZapier}
}

func (p *stubPoster) IsPlatformConnected(context.Context, content.Platform) bool { return true }

func (p *stubPoster) BreakerState(relay.Method) string { return "closed" }

func TestPublishingServiceWebhook(t *testing.T) {
	settings := memorySettings{}
	svc := NewPublishingService(settings, &stubPoster{}, "https://hook.make.com/fallback")
	ctx := context.Background()

	got, err := svc.MakeWebhook(ctx)
	if err != nil {
		t.Fatalf("MakeWebhook: %v", err)
	}
	if got.WebhookURL != "https://hook.make.com/fallback" {
		t.Fatalf("expected config fallback, got %q", got.WebhookURL)
	}

	if _, err := svc.SetMakeWebhook(ctx, ""); services.Details(err).Message != "Webhook URL is required" {
		t.Fatalf("expected required error, got %v", err)
	}
	if _, err := svc.SetMakeWebhook(ctx, "not a url"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	saved, err := svc.SetMakeWebhook(ctx, "https://hook.make.com/abc")
	if err != nil {
		t.Fatalf("SetMakeWebhook: %v", err)
	}
	if !saved.Success || settings[queue.SettingMakeWebhookURL] != "https://hook.make.com/abc" {
		t.Fatalf("webhook not stored: %+v %v", saved, settings)
	}
	got, err = svc.MakeWebhook(ctx)
	if err != nil || got.WebhookURL != "https://hook.make.com/abc" {
		t.Fatalf("MakeWebhook after save = %+v, %v", got, err)
	}
}

func TestPublishingServiceMethods(t *testing.T) {
	svc := NewPublishingService(memorySettings{}, &stubPoster{}, "")

	got, err := svc.Methods(context.Background(), "linkedin")
	if err != nil {
		t.Fatalf("Methods: %v", err)
	}
	want := []PublishingMethod{
		{Method: "direct", Available: false, Default: false, Breaker: "closed"},
		{Method: "make", Available: true, Default: true, Breaker: "closed"},
		{Method: "zapier", Available: true, Default: false, Breaker: "closed"},
		{Method: "buffer", Available: false, Default: false, Breaker: "closed"},
	}
	if diff := cmp.Diff(want, got.Methods); diff != "" {
		t.Fatalf("methods mismatch (-want +got):\n%s", diff)
	}
	if !got.Connected {
		t.Fatal("expected connected")
	}
}

func TestPublishingServicePost(t *testing.T) {
	poster := &stubPoster{}
	svc := NewPublishingService(memorySettings{}, poster, "")
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	if _, err := svc.Post(context.Background(), PostRequest{Platform: "linkedin"}); services.Details(err).Message != "Missing required fields" {
		t.Fatalf("expected missing fields, got %v", err)
	}

	got, err := svc.Post(context.Background(), PostRequest{Platform: "twitter", Message: "Ship it #golang", Method: "zapier"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	want := PostResponse{Success: true, Message: "Posted", PostID: "make-1", PostURL: "https://example.com/1", Timestamp: "2026-01-02T03:04:05.000Z"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
	if poster.method != relay.MethodZapier {
		t.Fatalf("method = %s, want zapier", poster.method)
	}
	if diff := cmp.Diff([]string{"golang"}, poster.posts[0].Hashtags); diff != "" {
		t.Fatalf("hashtags mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishingServicePostPropagatesRelayError(t *testing.T) {
	relayErr := services.Wrap(services.ErrExternalTool, "socialPost", "make", "Webhook rejected the post", nil)
	svc := NewPublishingService(memorySettings{}, &stubPoster{err: relayErr}, "")

	_, err := svc.Post(context.Background(), PostRequest{Platform: "linkedin", Message: "hello"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected relay error, got %v", err)
	}
}

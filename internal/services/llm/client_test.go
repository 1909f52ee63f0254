package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetries(attempts int) []Option {
	return []Option{
		WithRetryMaxAttempts(attempts),
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
	}
}

func choiceHandler(t *testing.T, content, refusal string, capture *chatRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message":       map[string]any{"content": content, "refusal": refusal},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestClientHealthCheck(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(choiceHandler(t, "OK", "", &captured))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if captured.Model != "demo-model" || captured.MaxTokens != 5 {
		t.Fatalf("unexpected health request: %+v", captured)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, fastRetries(3)...)
	err := client.HealthCheck(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
}

func TestClientCompleteSendsPromptAndSampling(t *testing.T) {
	var captured chatRequest
	var auth, title string
	handler := choiceHandler(t, "  Remote work is here to stay. #remote  ", "", &captured)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		title = r.Header.Get("X-Title")
		handler(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: " sk-test ", BaseURL: server.URL, Temperature: 0.7, MaxTokens: 300, Title: "contentflow"})
	content, err := client.Complete(context.Background(), "You are a social media content creator", "Create a post about remote work")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "Remote work is here to stay. #remote" {
		t.Fatalf("unexpected content %q", content)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if title != "contentflow" {
		t.Fatalf("unexpected X-Title %q", title)
	}
	if captured.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", captured.Model)
	}
	if captured.Temperature != 0.7 || captured.MaxTokens != 300 {
		t.Fatalf("unexpected sampling settings: %+v", captured)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
}

func TestClientCompleteEmptyContentIsNoContent(t *testing.T) {
	server := httptest.NewServer(choiceHandler(t, "   ", "", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, fastRetries(1)...)
	_, err := client.Complete(context.Background(), "system", "user")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if !strings.Contains(err.Error(), `finish_reason="stop"`) {
		t.Fatalf("expected finish reason in error, got %v", err)
	}
}

func TestClientCompleteNoChoicesIsNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, fastRetries(1)...)
	if _, err := client.Complete(context.Background(), "system", "user"); !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestClientRefusalIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	handler := choiceHandler(t, "", "I can't help with that", nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, fastRetries(3)...)
	_, err := client.Complete(context.Background(), "system", "user")
	if !errors.Is(err, ErrNoContent) || !strings.Contains(err.Error(), "refused") {
		t.Fatalf("expected refusal error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestClientCompleteStatusErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, fastRetries(3)...)
	_, err := client.Complete(context.Background(), "system", "user")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Retryable() {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call for 401, got %d", calls.Load())
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls atomic.Int32
	ok := choiceHandler(t, "second time lucky", "", nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		ok(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, fastRetries(5)...)
	content, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "second time lucky" {
		t.Fatalf("unexpected content %q", content)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClientRetriesExhaustedReturnsLastFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, fastRetries(3)...)
	_, err := client.Complete(context.Background(), "system", "user")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 StatusError, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := ""
		if calls.Add(1) >= 3 {
			content = "finally"
		}
		choiceHandler(t, content, "", nil)(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, fastRetries(5)...)
	content, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "finally" {
		t.Fatalf("unexpected content %q", content)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClientCanceledContextStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, fastRetries(5)...)
	if _, err := client.Complete(ctx, "system", "user"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Complete(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error without api key")
	}
}

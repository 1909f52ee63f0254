package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/content"
)

const (
	userAgent         = "ContentFlow-Go/0.1.0"
	topicExcerptRunes = 80
)

// Event names a workflow milestone worth a push notification.
type Event string

const (
	EventPostPublished    Event = "post_published"
	EventItemFailed       Event = "item_failed"
	EventApprovalRequired Event = "approval_required"
	EventQueueCompleted   Event = "queue_completed"
	EventTest             Event = "test"
)

// Payload carries event fields. Values are formatted with %v.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		settings: cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	settings config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, fields Payload) error {
	data, ok := n.format(event, fields)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

// format renders an event. ok is false when the event is switched off in
// the config or below its threshold.
func (n *ntfyService) format(event Event, fields Payload) (payload, bool) {
	switch event {
	case EventPostPublished:
		if !n.settings.Published {
			return payload{}, false
		}
		message := fmt.Sprintf("📣 Published to %s: %s", fields.str("platform"), fields.topic())
		if link := fields.str("postURL"); link != "" {
			message = fmt.Sprintf("%s\n%s", message, link)
		}
		return payload{
			title:   "ContentFlow - Published",
			message: message,
			tags:    []string{"contentflow", "publish", fields.str("platform")},
		}, true
	case EventItemFailed:
		if !n.settings.Errors {
			return payload{}, false
		}
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if stage := fields.str("stage"); stage != "" {
			builder.WriteString(" during ")
			builder.WriteString(stage)
		}
		if topic := fields.topic(); topic != "" {
			builder.WriteString(" for \"")
			builder.WriteString(topic)
			builder.WriteString("\"")
		}
		builder.WriteString(": ")
		if msg := fields.str("error"); msg != "" {
			builder.WriteString(msg)
		} else {
			builder.WriteString("unknown")
		}
		return payload{
			title:    "ContentFlow - Error",
			message:  builder.String(),
			tags:     []string{"contentflow", "error", "alert"},
			priority: "high",
		}, true
	case EventApprovalRequired:
		if !n.settings.Published {
			return payload{}, false
		}
		return payload{
			title:   "ContentFlow - Ready to Publish",
			message: fmt.Sprintf("📝 Item %s is ready for review: %s", fields.str("id"), fields.topic()),
			tags:    []string{"contentflow", "review"},
		}, true
	case EventQueueCompleted:
		if !n.settings.Queue {
			return payload{}, false
		}
		processed := fields.number("processed")
		failed := fields.number("failed")
		if processed+failed < max(n.settings.QueueMinItems, 1) {
			return payload{}, false
		}
		duration := time.Duration(fields.number("durationSeconds")) * time.Second
		title := "ContentFlow - Queue Complete"
		message := fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, duration)
		if failed > 0 {
			title = "ContentFlow - Queue Complete (with errors)"
			message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, duration)
		}
		return payload{
			title:   title,
			message: message,
			tags:    []string{"contentflow", "queue", "completed"},
		}, true
	case EventTest:
		return payload{
			title:    "ContentFlow - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"contentflow", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

// topic renders the item topic as a short headline.
func (p Payload) topic() string {
	return content.Excerpt(content.Headline(p.str("topic")), topicExcerptRunes)
}

func (p Payload) str(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

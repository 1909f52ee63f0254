package workflow

import (
	"context"
	"errors"
	"time"

	"contentflow/internal/events"
	"contentflow/internal/logging"
	"contentflow/internal/notifications"
	"contentflow/internal/queue"
)

func (m *Manager) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, m.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, notification skipped", logging.String("event", string(event)))
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (m *Manager) notifyStageError(ctx context.Context, stageName string, item *queue.Item, message string) {
	m.notify(ctx, notifications.EventItemFailed, notifications.Payload{
		"id":    item.ID,
		"stage": stageName,
		"topic": item.Topic,
		"error": message,
	})
}

func (m *Manager) notifyPublished(ctx context.Context, item *queue.Item) {
	m.notify(ctx, notifications.EventPostPublished, notifications.Payload{
		"id":       item.ID,
		"platform": item.Platform,
		"topic":    item.Topic,
		"postURL":  item.PostURL,
	})
}

func (m *Manager) notifyApprovalRequired(ctx context.Context, item *queue.Item) {
	m.notify(ctx, notifications.EventApprovalRequired, notifications.Payload{
		"id":    item.ID,
		"topic": item.Topic,
	})
}

func (m *Manager) markQueueActive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queueActive {
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
}

// checkQueueCompletion refreshes queue depth and, once no item is pending
// or processing, announces the end of the busy period.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not check queue completion")
		} else {
			logging.WarnWithContext(m.logger, "queue stats unavailable; completion check skipped", "queue_stats_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "completion notification will not be sent"),
			)
		}
		return
	}
	m.metrics.SetQueueDepth(stats)
	if countActiveItems(stats) > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	m.publish(events.Event{Type: events.TypeQueueIdle})
	m.notify(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"processed":       stats[queue.StatusCompleted] + stats[queue.StatusPaused],
		"failed":          stats[queue.StatusFailed],
		"durationSeconds": int(duration.Seconds()),
	})
}

func countActiveItems(stats map[queue.Status]int) int {
	return stats[queue.StatusPending] + stats[queue.StatusProcessing]
}

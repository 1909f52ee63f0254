package events

import (
	"fmt"
	"time"

	"contentflow/internal/queue"
)

// Event types published on the stream.
const (
	TypeItemCreated = "item_created"
	TypeItemUpdated = "item_updated"
	TypeItemRemoved = "item_removed"
	TypeQueueIdle   = "queue_idle"
	TypeQueueClear  = "queue_cleared"
)

// Event is the JSON message delivered to subscribers.
type Event struct {
	Type            string            `json:"type"`
	ItemID          int64             `json:"item_id,omitempty"`
	Topic           string            `json:"topic,omitempty"`
	Platform        string            `json:"platform,omitempty"`
	Status          string            `json:"status,omitempty"`
	Stage           string            `json:"stage,omitempty"`
	Stages          map[string]string `json:"stages,omitempty"`
	ProgressPercent float64           `json:"progress_percent,omitempty"`
	ProgressMessage string            `json:"progress_message,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	PostURL         string            `json:"post_url,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// ItemEvent snapshots an item into an event of the given type.
func ItemEvent(eventType string, item *queue.Item) Event {
	evt := Event{Type: eventType, Timestamp: time.Now().UTC()}
	if item == nil {
		return evt
	}
	stages := make(map[string]string, 5)
	for stage, status := range item.Stages.Map() {
		stages[string(stage)] = string(status)
	}
	evt.ItemID = item.ID
	evt.Topic = item.Topic
	evt.Platform = item.Platform
	evt.Status = string(item.Status)
	evt.Stage = string(item.LastStage)
	evt.Stages = stages
	evt.ProgressPercent = item.ProgressPercent
	evt.ProgressMessage = item.ProgressMessage
	evt.ErrorMessage = item.ErrorMessage
	evt.PostURL = item.PostURL
	return evt
}

// Cleared reports how many items a clear request deleted.
func Cleared(count int64) Event {
	return Event{Type: TypeQueueClear, ProgressMessage: fmt.Sprintf("%d items removed", count), Timestamp: time.Now().UTC()}
}

// Removed builds the event sent when an item is deleted.
func Removed(id int64) Event {
	return Event{Type: TypeItemRemoved, ItemID: id, Timestamp: time.Now().UTC()}
}

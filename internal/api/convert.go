package api

import (
	"slices"
	"time"
	"unicode/utf8"

	"contentflow/internal/content"
	"contentflow/internal/logging"
	"contentflow/internal/queue"
	"contentflow/internal/stage"
	"contentflow/internal/workflow"
)

// FromContentItem converts a queue record to its API representation.
func FromContentItem(item *queue.Item) ContentItem {
	if item == nil {
		return ContentItem{}
	}

	platform, err := content.ParsePlatform(item.Platform)
	if err != nil {
		platform = content.Platform(item.Platform)
	}

	stages := make(map[string]string, 5)
	for stg, status := range item.Stages.Map() {
		stages[string(stg)] = string(status)
	}

	dto := ContentItem{
		ID:             item.ID,
		Topic:          item.Topic,
		Platform:       string(platform),
		PlatformLabel:  platform.Label(),
		PostingMethod:  item.PostingMethod,
		Status:         string(item.Status),
		ProcessingLane: string(queue.LaneForItem(item)),
		Stages:         stages,
		CurrentStep:    item.Stages.CurrentStep(),
		LastStage:      string(item.LastStage),
		SingleStage:    item.SingleStage,
		Text:           item.Text,
		Hashtags:       item.Hashtags,
		CharCount:      utf8.RuneCountInString(item.Text),
		CharLimit:      platform.CharacterLimit(),
		ImageURL:       item.ImageURL,
		ImagePath:      item.ImagePath,
		AudioPath:      item.AudioPath,
		AudioDuration:  item.AudioDuration,
		VideoPath:      item.VideoPath,
		PostID:         item.PostID,
		PostURL:        item.PostURL,
		Progress: StageProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage: item.ErrorMessage,
		ErrorCode:    item.ErrorCode,
		FailedStage:  string(item.FailedStage),
		CreatedAt:    FormatTime(item.CreatedAt),
		UpdatedAt:    FormatTime(item.UpdatedAt),
	}
	return dto
}

// FromContentItems converts a slice of queue records into API DTOs.
func FromContentItems(items []*queue.Item) []ContentItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]ContentItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromContentItem(item))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
		LastError:   summary.LastError,
	}
	if summary.LastItem != nil {
		last := FromContentItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
// Every known status is present so clients can render zero counts.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a slice ordered by
// pipeline position. Unknown names sort after the stages.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		ia, ib := stageIndex(a), stageIndex(b)
		if ia != ib {
			return ia - ib
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromLogEvents converts hub records for the log stream endpoint.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		var details []DetailField
		for _, detail := range evt.Details {
			details = append(details, DetailField{Label: detail.Label, Value: detail.Value})
		}
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     evt.Timestamp,
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			Stage:         evt.Stage,
			ItemID:        evt.ItemID,
			Lane:          evt.Lane,
			Platform:      evt.Platform,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
			Details:       details,
		})
	}
	return out
}

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"contentflow/internal/api"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[string(status)]
		if !ok {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), humanize.Comma(int64(count))})
	}
	return rows
}

func buildContentListRows(items []api.ContentItem, now time.Time, colorize bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			truncate(item.Topic, 40),
			item.Platform,
			formatStatusLabel(item.Status),
			stageStrip(item, colorize),
			relativeTime(item.CreatedAt, now),
		})
	}
	return rows
}

// stageStrip renders the five stage statuses in pipeline order.
func stageStrip(item api.ContentItem, colorize bool) string {
	parts := make([]string, 0, len(pipeline.Stages()))
	for _, stg := range pipeline.Stages() {
		parts = append(parts, stageGlyph(item.StageStatus(stg), colorize))
	}
	return strings.Join(parts, " ")
}

func itemDetails(item api.ContentItem, now time.Time) [][2]string {
	pairs := [][2]string{
		{"ID", fmt.Sprintf("%d", item.ID)},
		{"Topic", item.Topic},
		{"Platform", item.PlatformLabel},
		{"Posting method", item.PostingMethod},
		{"Status", formatStatusLabel(item.Status)},
		{"Progress", progressSummary(item)},
	}
	for _, stg := range pipeline.Stages() {
		pairs = append(pairs, [2]string{"  " + stg.Label(), item.StageStatus(stg)})
	}
	return append(pairs,
		[2]string{"Text", item.Text},
		[2]string{"Characters", fmt.Sprintf("%d / %d", item.CharCount, item.CharLimit)},
		[2]string{"Hashtags", strings.Join(item.Hashtags, " ")},
		[2]string{"Image", fileSummary(item.ImagePath, item.ImageURL)},
		[2]string{"Audio", audioSummary(item)},
		[2]string{"Video", fileSummary(item.VideoPath, "")},
		[2]string{"Post", strings.TrimSpace(item.PostID + " " + item.PostURL)},
		[2]string{"Error", errorSummary(item)},
		[2]string{"Created", relativeTime(item.CreatedAt, now)},
		[2]string{"Updated", relativeTime(item.UpdatedAt, now)},
	)
}

func progressSummary(item api.ContentItem) string {
	summary := fmt.Sprintf("step %d of %d", item.CurrentStep, len(pipeline.Stages()))
	if item.Progress.Stage != "" && item.Status == string(queue.StatusProcessing) {
		summary += fmt.Sprintf(" (%s %.0f%% %s)", item.Progress.Stage, item.Progress.Percent, item.Progress.Message)
	}
	return summary
}

func audioSummary(item api.ContentItem) string {
	summary := fileSummary(item.AudioPath, "")
	if summary == "" || item.AudioDuration <= 0 {
		return summary
	}
	return fmt.Sprintf("%s, %s", summary, (time.Duration(item.AudioDuration * float64(time.Second))).Round(100*time.Millisecond))
}

func errorSummary(item api.ContentItem) string {
	if item.ErrorMessage == "" {
		return ""
	}
	parts := []string{item.ErrorMessage}
	if item.FailedStage != "" {
		parts = append(parts, "stage "+item.FailedStage)
	}
	if item.ErrorCode != "" {
		parts = append(parts, "code "+item.ErrorCode)
	}
	return strings.Join(parts, "; ")
}

// fileSummary reports a staged file and its size when it is readable from
// this host.
func fileSummary(path, url string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return strings.TrimSpace(url)
	}
	info, err := os.Stat(path)
	if err != nil {
		return path
	}
	return fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(info.Size())))
}

func relativeTime(value string, now time.Time) string {
	ts := api.ParseQueueTime(value)
	if ts.IsZero() {
		return value
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return "Unknown"
	}
	return strings.ToUpper(status[:1]) + status[1:]
}

func stageOrder(name string) int {
	if stg, ok := pipeline.ParseStage(name); ok {
		return stg.Index()
	}
	return len(pipeline.Stages())
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}

package api

import (
	"sort"
	"time"

	"contentflow/internal/pipeline"
)

// SortContentNewestFirst orders items by CreatedAt descending, breaking ties by ID descending.
func SortContentNewestFirst(items []ContentItem) []ContentItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]ContentItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// ParseQueueTime exposes timestamp parsing for consumers that need display formatting.
func ParseQueueTime(value string) time.Time {
	return parseQueueTime(value)
}

// StageStatus returns the status string for a stage, defaulting to idle.
func (c ContentItem) StageStatus(stg pipeline.Stage) string {
	if status, ok := c.Stages[string(stg)]; ok && status != "" {
		return status
	}
	return string(pipeline.StatusIdle)
}

func stageIndex(name string) int {
	stg, ok := pipeline.ParseStage(name)
	if !ok {
		return len(pipeline.Stages())
	}
	return stg.Index()
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"contentflow/internal/staging"
)

// ActiveItemProvider reports the ids of items still in the queue.
type ActiveItemProvider interface {
	ActiveItemIDs(ctx context.Context) (map[int64]struct{}, error)
}

type CleanStagingRequest struct {
	StagingDir string
	CleanAll   bool
	Items      ActiveItemProvider
	Logger     *slog.Logger
}

type CleanStagingResult struct {
	Configured bool
	Scope      string
	Cleanup    staging.CleanResult
}

// CleanStagingDirectories removes item working directories. Without CleanAll
// only directories whose item left the queue are removed.
func CleanStagingDirectories(ctx context.Context, req CleanStagingRequest) (CleanStagingResult, error) {
	stagingDir := strings.TrimSpace(req.StagingDir)
	if stagingDir == "" {
		return CleanStagingResult{Configured: false}, nil
	}

	if req.CleanAll {
		return CleanStagingResult{
			Configured: true,
			Scope:      "staging",
			Cleanup:    staging.CleanStale(ctx, stagingDir, 0, req.Logger),
		}, nil
	}

	if req.Items == nil {
		return CleanStagingResult{}, errors.New("active item provider is required unless cleaning everything")
	}
	ids, err := req.Items.ActiveItemIDs(ctx)
	if err != nil {
		return CleanStagingResult{}, err
	}
	return CleanStagingResult{
		Configured: true,
		Scope:      "orphaned staging",
		Cleanup:    staging.CleanOrphaned(ctx, stagingDir, ids, req.Logger),
	}, nil
}

// ItemIDSet collects the ids of the given items.
func ItemIDSet(items []ContentItem) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(items))
	for _, item := range items {
		ids[item.ID] = struct{}{}
	}
	return ids
}

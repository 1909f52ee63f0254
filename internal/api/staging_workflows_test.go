package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"contentflow/internal/staging"
)

type idProvider struct {
	ids map[int64]struct{}
	err error
}

func (p idProvider) ActiveItemIDs(context.Context) (map[int64]struct{}, error) {
	return p.ids, p.err
}

func TestCleanStagingDirectoriesOrphaned(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []int64{1, 2} {
		if err := os.Mkdir(filepath.Join(dir, staging.ItemDirName(id)), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingDir: dir,
		Items:      idProvider{ids: ItemIDSet([]ContentItem{{ID: 1}})},
	})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if !result.Configured || result.Scope != "orphaned staging" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Cleanup.Removed) != 1 || filepath.Base(result.Cleanup.Removed[0]) != "item-2" {
		t.Fatalf("expected item-2 removed, got %v", result.Cleanup.Removed)
	}
}

func TestCleanStagingDirectoriesAll(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, staging.ItemDirName(1)), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{StagingDir: dir, CleanAll: true})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if len(result.Cleanup.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %v", result.Cleanup.Removed)
	}
}

func TestCleanStagingDirectoriesRequiresProvider(t *testing.T) {
	if _, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{StagingDir: t.TempDir()}); err == nil {
		t.Fatal("expected missing provider to fail")
	}

	wantErr := errors.New("db locked")
	_, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingDir: t.TempDir(),
		Items:      idProvider{err: wantErr},
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestCleanStagingDirectoriesUnconfigured(t *testing.T) {
	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{StagingDir: "  "})
	if err != nil || result.Configured {
		t.Fatalf("expected unconfigured result, got %+v, %v", result, err)
	}
}

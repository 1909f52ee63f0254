package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"contentflow/internal/logging"
	"contentflow/internal/testsupport"
)

func mkdir(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	return path
}

func TestItemDirNameMatchesConfigLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if got, want := ItemDirName(42), filepath.Base(cfg.ItemStagingDir(42)); got != want {
		t.Fatalf("ItemDirName = %q, config uses %q", got, want)
	}
}

func TestItemIDFromDir(t *testing.T) {
	cases := map[string]struct {
		id int64
		ok bool
	}{
		"item-7":     {7, true},
		"item-0":     {0, false},
		"item-abc":   {0, false},
		"queue-7":    {0, false},
		"lost+found": {0, false},
	}
	for name, want := range cases {
		id, ok := ItemIDFromDir(name)
		if id != want.id || ok != want.ok {
			t.Errorf("ItemIDFromDir(%q) = %d, %v; want %d, %v", name, id, ok, want.id, want.ok)
		}
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := mkdir(t, filepath.Join(tmpDir, "item-1"))
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}
	recentDir := mkdir(t, filepath.Join(tmpDir, "item-2"))

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
}

func TestCleanStaleZeroAgeRemovesEverything(t *testing.T) {
	tmpDir := t.TempDir()
	mkdir(t, filepath.Join(tmpDir, "item-1"))
	mkdir(t, filepath.Join(tmpDir, "scratch"))

	result := CleanStale(context.Background(), tmpDir, 0, nil)
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", result.Removed)
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "old-file.txt")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
	}
}

func TestCleanOrphanedEmptyDir(t *testing.T) {
	for _, dir := range []string{"", "   "} {
		result := CleanOrphaned(context.Background(), dir, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanOrphanedRemovesUnqueuedItems(t *testing.T) {
	tmpDir := t.TempDir()

	activeDir := mkdir(t, filepath.Join(tmpDir, ItemDirName(1)))
	orphanDir := mkdir(t, filepath.Join(tmpDir, ItemDirName(2)))
	foreignDir := mkdir(t, filepath.Join(tmpDir, "manual-notes"))

	result := CleanOrphaned(context.Background(), tmpDir, map[int64]struct{}{1: {}}, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != orphanDir {
		t.Fatalf("expected only %s removed, got %v", orphanDir, result.Removed)
	}
	for _, dir := range []string{activeDir, foreignDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s should still exist", dir)
		}
	}
}

func TestCleanOrphanedStopsOnCanceledContext(t *testing.T) {
	tmpDir := t.TempDir()
	dir := mkdir(t, filepath.Join(tmpDir, ItemDirName(3)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := CleanOrphaned(ctx, tmpDir, nil, nil)

	if len(result.Removed) != 0 || len(result.Errors) != 1 {
		t.Fatalf("expected a single cancellation error, got %+v", result)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("directory should survive a canceled cleanup")
	}
}

func TestListDirectoriesInvalidPaths(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
		if dirs != nil {
			t.Errorf("expected nil for path %q, got %v", path, dirs)
		}
	}
}

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	dir1 := mkdir(t, filepath.Join(tmpDir, "item-1"))
	mkdir(t, filepath.Join(tmpDir, "scratch"))
	if err := os.WriteFile(filepath.Join(tmpDir, "not-a-dir.txt"), []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir1, "image.jpg"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("create inner file: %v", err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 directories, got %d", len(dirs))
	}

	byName := map[string]DirInfo{}
	for _, d := range dirs {
		byName[d.Name] = d
	}
	item := byName["item-1"]
	if item.ItemID != 1 || item.Size != 5 || item.Path != dir1 || item.ModTime.IsZero() {
		t.Fatalf("unexpected item dir info: %+v", item)
	}
	if byName["scratch"].ItemID != 0 {
		t.Fatalf("expected scratch dir without item id, got %+v", byName["scratch"])
	}
}

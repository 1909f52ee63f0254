package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPruneLogsRemovesOnlyOldMatches(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-10 * 24 * time.Hour)
	write := func(name string, mod time.Time) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("log\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	stale := write("contentflow-20260101T000000.log", old)
	current := write("contentflow-20260102T000000.log", old)
	fresh := write("contentflow-20261017T000000.log", time.Now())
	other := write("notes.txt", old)

	removed := PruneLogs(NewNop(), dir, "contentflow-*.log", RetentionAge(7), current)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err = %v", err)
	}
	for _, path := range []string{current, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", filepath.Base(path), err)
		}
	}
}

func TestPruneLogsDisabled(t *testing.T) {
	if RetentionAge(0) != 0 || RetentionAge(-3) != 0 {
		t.Fatal("non-positive retention should disable pruning")
	}
	if got := PruneLogs(nil, t.TempDir(), "*.log", 0); got != 0 {
		t.Fatalf("removed = %d with pruning disabled", got)
	}
}

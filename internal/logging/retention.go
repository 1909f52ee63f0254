package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneLogs removes files in dir matching pattern that were last modified
// more than maxAge ago. Paths listed in keep are never removed. A
// non-positive maxAge disables pruning. It returns the number of files
// removed.
func PruneLogs(logger *slog.Logger, dir, pattern string, maxAge time.Duration, keep ...string) int {
	if maxAge <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	protected := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		protected[filepath.Clean(path)] = struct{}{}
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		if _, ok := protected[filepath.Clean(path)]; ok {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check log_dir ownership"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("pruned old logs",
			String("dir", dir),
			Int("removed", removed),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

// RetentionAge converts a day count from configuration into a duration.
func RetentionAge(days int) time.Duration {
	if days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

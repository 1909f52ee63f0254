// Package staging manages the per-item working directories under
// paths.staging_dir where generated images, narration and previews live.
package staging

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"contentflow/internal/logging"
)

const itemDirPrefix = "item-"

// ItemDirName returns the directory name used for one item's artifacts.
func ItemDirName(itemID int64) string {
	return fmt.Sprintf("%s%d", itemDirPrefix, itemID)
}

// ItemIDFromDir parses an item directory name. Directories that do not
// follow the item-<id> layout report false.
func ItemIDFromDir(name string) (int64, bool) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(name), itemDirPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CleanResult contains the outcome of a cleanup pass.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staging directories last modified more than maxAge ago.
// A zero maxAge removes every directory.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	cutoff := time.Now().Add(-maxAge)
	return clean(ctx, stagingDir, logger, "stale", func(entry fs.DirEntry) bool {
		info, err := entry.Info()
		if err != nil {
			return false
		}
		return maxAge <= 0 || info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes item directories whose item is no longer queued.
// Directories outside the item-<id> layout are left alone.
func CleanOrphaned(ctx context.Context, stagingDir string, activeIDs map[int64]struct{}, logger *slog.Logger) CleanResult {
	return clean(ctx, stagingDir, logger, "orphaned", func(entry fs.DirEntry) bool {
		id, ok := ItemIDFromDir(entry.Name())
		if !ok {
			return false
		}
		_, active := activeIDs[id]
		return !active
	})
}

func clean(ctx context.Context, stagingDir string, logger *slog.Logger, kind string, remove func(fs.DirEntry) bool) CleanResult {
	result := CleanResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: ctx.Err()})
			return result
		}
		if !entry.IsDir() || !remove(entry) {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove "+kind+" staging directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed "+kind+" staging directory",
				logging.String("path", dirPath),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

// ListDirectories returns all directories in the staging directory with their metadata.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		size, _ := dirSize(dirPath)
		itemID, _ := ItemIDFromDir(entry.Name())

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ItemID:  itemID,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a staging directory. ItemID is zero for
// directories outside the item layout.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ItemID  int64     `json:"item_id,omitempty"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size_bytes"`
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

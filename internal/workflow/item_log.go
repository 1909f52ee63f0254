package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"contentflow/internal/config"
	"contentflow/internal/logging"
	"contentflow/internal/queue"
)

// ItemLogger manages one log file per content item under <log_dir>/items.
type ItemLogger struct {
	baseDir string
	cfg     *config.Config
}

// NewItemLogger creates a new item logger. Without a log directory every
// call to Ensure fails and stage output only reaches the daemon log.
func NewItemLogger(cfg *config.Config) *ItemLogger {
	dir := ""
	if cfg != nil && cfg.Paths.LogDir != "" {
		dir = filepath.Join(cfg.Paths.LogDir, "items")
	}
	return &ItemLogger{
		baseDir: dir,
		cfg:     cfg,
	}
}

// Path returns the log file for an item. The name is stable for the
// lifetime of the item so every stage run appends to the same file.
func (b *ItemLogger) Path(item *queue.Item) string {
	if item == nil || strings.TrimSpace(b.baseDir) == "" {
		return ""
	}
	slug := sanitizeSlug(item.Topic)
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return filepath.Join(b.baseDir, fmt.Sprintf("item-%d-%s.log", item.ID, slug))
}

// Ensure prepares the log directory and returns the item's log path.
func (b *ItemLogger) Ensure(item *queue.Item) (string, error) {
	if item == nil {
		return "", fmt.Errorf("queue item is nil")
	}
	path := b.Path(item)
	if path == "" {
		return "", fmt.Errorf("item log directory not configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure item log directory: %w", err)
	}
	return path, nil
}

// CreateHandler builds a JSON slog.Handler appending to path. Records are
// not streamed; the lane logger it is teed with already feeds the hub.
func (b *ItemLogger) CreateHandler(path string) (slog.Handler, error) {
	level := "info"
	if b.cfg != nil && strings.TrimSpace(b.cfg.Logging.Level) != "" {
		level = b.cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           "json",
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	})
	if err != nil {
		return nil, err
	}
	return logger.Handler(), nil
}

func sanitizeSlug(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(value))
	lastDash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(builder.String(), "-")
}

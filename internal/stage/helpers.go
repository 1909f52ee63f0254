package stage

import (
	"fmt"
	"os"
	"strings"

	"contentflow/internal/queue"
	"contentflow/internal/services"
)

// RequireText returns a validation error when the item has no generated
// text yet. Every stage after text works from it.
func RequireText(stageName string, item *queue.Item) (string, error) {
	if item == nil {
		return "", services.Wrap(services.ErrValidation, stageName, "load item", "Item is missing", nil)
	}
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return "", services.WithCode(services.Wrap(
			services.ErrValidation, stageName, "load text",
			"No generated text available; regenerate the text stage first", nil), "missing_text")
	}
	return text, nil
}

// EnsureDir creates an item's working directory.
func EnsureDir(stageName, dir string) error {
	if strings.TrimSpace(dir) == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare staging", "Staging directory is not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare staging",
			fmt.Sprintf("Failed to create staging directory %q", dir), err)
	}
	return nil
}

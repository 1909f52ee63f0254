package stage

import (
	"errors"
	"path/filepath"
	"testing"

	"contentflow/internal/queue"
	"contentflow/internal/services"
)

func TestRequireText(t *testing.T) {
	if _, err := RequireText("image", &queue.Item{Text: "   "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if code := services.Code(mustErr(RequireText("image", &queue.Item{}))); code != "missing_text" {
		t.Fatalf("expected missing_text code, got %q", code)
	}
	text, err := RequireText("image", &queue.Item{Text: " hello \n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "item-1")
	if err := EnsureDir("image", dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if err := EnsureDir("image", " "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func mustErr(_ string, err error) error {
	return err
}

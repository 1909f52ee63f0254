package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"contentflow/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "video", "ffmpeg", "render failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"video", "ffmpeg", "render failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "text", "complete", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if services.Details(err).Kind != services.KindTransient {
		t.Fatalf("unexpected kind %q", services.Details(err).Kind)
	}
}

func TestDetailsExposeCodeAndHint(t *testing.T) {
	err := services.Wrap(services.ErrConfiguration, "text", "prepare", "api key missing", nil)
	err = services.WithCode(err, "openai_api_key_missing")
	err = services.WithHint(err, "set llm.api_key or OPENAI_API_KEY")

	details := services.Details(fmt.Errorf("stage failed: %w", err))
	if details.Kind != services.KindConfiguration {
		t.Fatalf("expected configuration kind, got %q", details.Kind)
	}
	if details.Code != "openai_api_key_missing" {
		t.Fatalf("unexpected code %q", details.Code)
	}
	if details.Hint == "" {
		t.Fatal("expected hint to be retained")
	}
	if details.Stage != "text" || details.Operation != "prepare" {
		t.Fatalf("unexpected stage context: %+v", details)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatal("expected marker to survive WithCode/WithHint")
	}
}

func TestWithCodeOnPlainError(t *testing.T) {
	err := services.WithCode(errors.New("network down"), "text_generation_failed")
	if services.Code(err) != "text_generation_failed" {
		t.Fatalf("unexpected code %q", services.Code(err))
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected plain errors to be classified transient, got %v", err)
	}
}

func TestDetailsForPlainMarkerError(t *testing.T) {
	err := fmt.Errorf("lookup: %w", services.ErrNotFound)
	if kind := services.Details(err).Kind; kind != services.KindNotFound {
		t.Fatalf("expected not_found kind, got %q", kind)
	}
	if services.Details(nil).Kind != "" {
		t.Fatal("expected empty details for nil error")
	}
}

package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"contentflow/internal/relay"
	"contentflow/internal/testsupport"
)

func TestBuildStagesWiresEveryHandler(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	registry := relay.NewFromConfig(cfg, store, store, nil)

	set := BuildStages(cfg, registry, nil)
	if set.Text == nil || set.Image == nil || set.Audio == nil || set.Video == nil || set.Publish == nil {
		t.Fatalf("expected every stage handler, got %+v", set)
	}

	withoutRelays := BuildStages(cfg, nil, nil)
	if withoutRelays.Publish != nil {
		t.Fatal("expected no publish handler without a relay registry")
	}
}

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "contentflow-1.log")
	second := filepath.Join(dir, "contentflow-2.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	current := filepath.Join(dir, "contentflow.log")
	if err := ensureCurrentLogPointer(current, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(current, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(current)
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "contentflow-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, cfg, Options{LogLevel: "error"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

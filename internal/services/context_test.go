package services_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"contentflow/internal/services"
)

func TestScopeAccumulates(t *testing.T) {
	ctx := services.WithItemID(context.Background(), 42)
	ctx = services.WithStage(ctx, "video")
	ctx = services.WithLane(ctx, "render")
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithPlatform(ctx, "linkedin")

	want := services.Scope{ItemID: 42, Stage: "video", Lane: "render", RequestID: "req-123", Platform: "linkedin"}
	if diff := cmp.Diff(want, services.ScopeFrom(ctx)); diff != "" {
		t.Fatalf("scope mismatch (-want +got):\n%s", diff)
	}
	if id, ok := services.ItemIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
}

func TestScopeDoesNotLeakIntoParent(t *testing.T) {
	parent := services.WithStage(context.Background(), "text")
	child := services.WithStage(parent, "image")

	if stage, _ := services.StageFromContext(parent); stage != "text" {
		t.Fatalf("parent stage changed to %q", stage)
	}
	if stage, _ := services.StageFromContext(child); stage != "image" {
		t.Fatalf("child stage = %q", stage)
	}
}

func TestBlankValuesLeaveContextUnchanged(t *testing.T) {
	ctx := services.WithLane(context.Background(), "generate")
	if got := services.WithStage(ctx, ""); got != ctx {
		t.Fatal("blank stage should return the same context")
	}
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("expected no item id")
	}
	if _, ok := services.PlatformFromContext(ctx); ok {
		t.Fatal("expected no platform")
	}
}

package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"contentflow/internal/events"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/testsupport"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

func newContentService(t *testing.T) (*ContentService, *queue.Store, *eventRecorder) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	recorder := &eventRecorder{}
	return NewContentService(store, recorder), store, recorder
}

// finishStages marks stages successful up to and including last.
func finishStages(t *testing.T, item *queue.Item, last pipeline.Stage) {
	t.Helper()
	for _, stg := range pipeline.Stages() {
		if stg != pipeline.StageText {
			if err := item.Begin(stg); err != nil {
				t.Fatalf("begin %s: %v", stg, err)
			}
		}
		if err := item.Complete(stg); err != nil {
			t.Fatalf("complete %s: %v", stg, err)
		}
		if stg == last {
			return
		}
	}
}

func TestContentServiceCreate(t *testing.T) {
	svc, _, recorder := newContentService(t)

	item, err := svc.Create(context.Background(), CreateRequest{Topic: "  Remote work  ", Platform: "X", PostingMethod: "Zapier"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Topic != "Remote work" || item.Platform != "twitter" || item.PostingMethod != "zapier" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.Status != string(queue.StatusPending) {
		t.Fatalf("status = %s, want pending", item.Status)
	}
	wantStages := map[string]string{
		"text":       "generating",
		"image":      "idle",
		"audio":      "idle",
		"video":      "idle",
		"socialPost": "idle",
	}
	if diff := cmp.Diff(wantStages, item.Stages); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
	if item.CharLimit != 280 {
		t.Fatalf("char limit = %d, want 280", item.CharLimit)
	}
	if diff := cmp.Diff([]string{events.TypeItemCreated}, recorder.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestContentServiceCreateValidation(t *testing.T) {
	svc, _, _ := newContentService(t)

	tests := []struct {
		name string
		req  CreateRequest
		code string
	}{
		{name: "missing topic", req: CreateRequest{Topic: " ", Platform: "linkedin"}, code: "missing_parameters"},
		{name: "unknown platform", req: CreateRequest{Topic: "x", Platform: "myspace"}, code: "missing_parameters"},
		{name: "unknown method", req: CreateRequest{Topic: "x", Platform: "linkedin", PostingMethod: "fax"}, code: "unknown_posting_method"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := services.Code(err); got != tc.code {
				t.Fatalf("code = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestContentServiceRegenerateSingleStage(t *testing.T) {
	svc, store, _ := newContentService(t)
	ctx := context.Background()

	item := testsupport.NewItem(t, store, "Remote work", "linkedin")
	finishStages(t, item, pipeline.StageVideo)
	testsupport.MustUpdate(t, store, item)

	got, err := svc.Regenerate(ctx, item.ID, pipeline.StageImage)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if !got.SingleStage || got.LastStage != "image" || got.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected regenerate result: %+v", got)
	}
	if got.StageStatus(pipeline.StageVideo) != "success" {
		t.Fatalf("downstream video should keep success, got %s", got.StageStatus(pipeline.StageVideo))
	}
}

func TestContentServiceRegenerateRejectsBlockedStage(t *testing.T) {
	svc, store, _ := newContentService(t)

	item := testsupport.NewItem(t, store, "Remote work", "linkedin")
	finishStages(t, item, pipeline.StageText)
	testsupport.MustUpdate(t, store, item)

	_, err := svc.Regenerate(context.Background(), item.ID, pipeline.StageVideo)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(services.Details(err).Message, "has not succeeded") {
		t.Fatalf("unexpected message %q", services.Details(err).Message)
	}
}

func TestContentServiceRejectsProcessingItems(t *testing.T) {
	svc, store, _ := newContentService(t)

	item := testsupport.NewItem(t, store, "Remote work", "linkedin")
	item.Status = queue.StatusProcessing
	testsupport.MustUpdate(t, store, item)

	_, err := svc.EditText(context.Background(), item.ID, "new text")
	if got := services.Code(err); got != "item_busy" {
		t.Fatalf("code = %q, want item_busy", got)
	}
}

func TestContentServiceRemoveRejectsProcessingItem(t *testing.T) {
	svc, store, recorder := newContentService(t)
	ctx := context.Background()

	idle := testsupport.NewItem(t, store, "idle", "linkedin")
	busy := testsupport.NewItem(t, store, "busy", "linkedin")
	busy.Status = queue.StatusProcessing
	testsupport.MustUpdate(t, store, busy)

	removed, err := svc.Remove(ctx, []int64{idle.ID, busy.ID})
	if got := services.Code(err); got != "item_busy" {
		t.Fatalf("code = %q, want item_busy (err=%v)", got, err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got, _ := store.GetByID(ctx, busy.ID); got == nil {
		t.Fatal("expected processing item to survive Remove")
	}
	if diff := cmp.Diff([]string{events.TypeItemRemoved}, recorder.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestContentServiceResumeRetriesFailedStage(t *testing.T) {
	svc, store, _ := newContentService(t)

	item := testsupport.NewItem(t, store, "Remote work", "linkedin")
	finishStages(t, item, pipeline.StageText)
	if err := item.Begin(pipeline.StageImage); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := item.Fail(pipeline.StageImage, "download failed", "image_generation_failed"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	testsupport.MustUpdate(t, store, item)

	got, err := svc.Resume(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got.StageStatus(pipeline.StageImage) != "generating" || got.SingleStage {
		t.Fatalf("expected image generating in chain mode: %+v", got)
	}
	if got.ErrorMessage != "" || got.FailedStage != "" {
		t.Fatalf("failure should be cleared: %+v", got)
	}
}

func TestContentServiceResumeAfterApproval(t *testing.T) {
	svc, store, _ := newContentService(t)

	item := testsupport.NewItem(t, store, "Remote work", "linkedin")
	finishStages(t, item, pipeline.StageVideo)
	testsupport.MustUpdate(t, store, item)

	got, err := svc.Resume(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got.LastStage != "socialPost" {
		t.Fatalf("expected socialPost requested, got %s", got.LastStage)
	}

	finished := testsupport.NewItem(t, store, "Done", "linkedin")
	finishStages(t, finished, pipeline.StageSocialPost)
	testsupport.MustUpdate(t, store, finished)
	_, err = svc.Resume(context.Background(), finished.ID)
	if got := services.Code(err); got != "already_published" {
		t.Fatalf("code = %q, want already_published", got)
	}
}

func TestContentServicePublishOverridesMethod(t *testing.T) {
	svc, store, _ := newContentService(t)

	item := testsupport.NewItem(t, store, "Remote work", "linkedin")
	finishStages(t, item, pipeline.StageVideo)
	testsupport.MustUpdate(t, store, item)

	got, err := svc.Publish(context.Background(), item.ID, "buffer")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.PostingMethod != "buffer" || got.StageStatus(pipeline.StageSocialPost) != "generating" {
		t.Fatalf("unexpected publish result: %+v", got)
	}
}

func TestContentServiceEditText(t *testing.T) {
	svc, store, recorder := newContentService(t)

	item := testsupport.NewItem(t, store, "Remote work", "twitter")
	finishStages(t, item, pipeline.StageText)
	testsupport.MustUpdate(t, store, item)

	got, err := svc.EditText(context.Background(), item.ID, "Working from anywhere #remote #work")
	if err != nil {
		t.Fatalf("EditText: %v", err)
	}
	if diff := cmp.Diff([]string{"remote", "work"}, got.Hashtags); diff != "" {
		t.Fatalf("hashtags mismatch (-want +got):\n%s", diff)
	}

	_, err = svc.EditText(context.Background(), item.ID, strings.Repeat("a", 281))
	if got := services.Code(err); got != "content_too_long" {
		t.Fatalf("code = %q, want content_too_long", got)
	}
	if len(recorder.types()) != 1 {
		t.Fatalf("expected one update event, got %v", recorder.types())
	}
}

func TestContentServiceNotFound(t *testing.T) {
	svc, _, _ := newContentService(t)

	item, err := svc.Describe(context.Background(), 999)
	if err != nil || item != nil {
		t.Fatalf("Describe unknown = %v, %v; want nil, nil", item, err)
	}
	_, err = svc.Resume(context.Background(), 999)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestContentServiceRemoveAndClear(t *testing.T) {
	svc, store, recorder := newContentService(t)
	ctx := context.Background()

	first := testsupport.NewItem(t, store, "one", "linkedin")
	second := testsupport.NewItem(t, store, "two", "linkedin")
	finishStages(t, second, pipeline.StageSocialPost)
	testsupport.MustUpdate(t, store, second)

	result, err := ReportRemovals(ctx, svc, []int64{first.ID, 999})
	if err != nil {
		t.Fatalf("ReportRemovals: %v", err)
	}
	if result.Removed != 1 || result.Items[1].Removed {
		t.Fatalf("unexpected remove result: %+v", result)
	}

	cleared, err := svc.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for status, count := range stats {
		if count != 0 {
			t.Fatalf("expected empty queue, %s=%d", status, count)
		}
	}
	if diff := cmp.Diff([]string{events.TypeItemRemoved, events.TypeQueueClear}, recorder.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestContentServiceListNewestFirst(t *testing.T) {
	svc, store, _ := newContentService(t)

	first := testsupport.NewItem(t, store, "one", "linkedin")
	second := testsupport.NewItem(t, store, "two", "linkedin")

	items, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", items)
	}
}

package stageexec_test

import (
	"context"
	"errors"
	"testing"

	"contentflow/internal/logging"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/stageexec"
	"contentflow/internal/testsupport"
)

type recordingHandler struct {
	stage pipeline.Stage
	err   error
	ran   *[]pipeline.Stage
}

func (h recordingHandler) Prepare(context.Context, *queue.Item) error { return nil }

func (h recordingHandler) Execute(_ context.Context, item *queue.Item) error {
	*h.ran = append(*h.ran, h.stage)
	if h.stage == pipeline.StageText {
		item.Text = "Hello #world"
	}
	return h.err
}

func resolverFor(ran *[]pipeline.Stage, failing pipeline.Stage) stageexec.Resolver {
	return func(stg pipeline.Stage) stageexec.Handler {
		h := recordingHandler{stage: stg, ran: ran}
		if stg == failing {
			h.err = services.Wrap(services.ErrExternalTool, string(stg), "render", "Render failed", errors.New("exit 1"))
		}
		return h
	}
}

func TestRunStopsAfterThroughStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "Go tips", "twitter")

	var ran []pipeline.Stage
	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:   logging.NewNop(),
		Store:    store,
		Handlers: resolverFor(&ran, ""),
		Item:     item,
		Through:  pipeline.StageVideo,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ran) != 4 || ran[3] != pipeline.StageVideo {
		t.Fatalf("unexpected stages run: %v", ran)
	}

	stored, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != queue.StatusPaused {
		t.Fatalf("expected paused, got %s", stored.Status)
	}
	if stored.Text != "Hello #world" {
		t.Fatalf("text not persisted: %q", stored.Text)
	}
	if got := stored.Stages.Status(pipeline.StageSocialPost); got != pipeline.StatusIdle {
		t.Fatalf("socialPost should be idle, got %s", got)
	}
}

func TestRunReportsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "Go tips", "twitter")

	var ran []pipeline.Stage
	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:   logging.NewNop(),
		Store:    store,
		Handlers: resolverFor(&ran, pipeline.StageAudio),
		Item:     item,
	})
	if !errors.Is(err, stageexec.ErrStageFailed) {
		t.Fatalf("expected ErrStageFailed, got %v", err)
	}
	stored, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != queue.StatusFailed || stored.FailedStage != pipeline.StageAudio {
		t.Fatalf("unexpected failure state: status=%s stage=%s", stored.Status, stored.FailedStage)
	}
	if stored.ErrorMessage != "Render failed" {
		t.Fatalf("unexpected message %q", stored.ErrorMessage)
	}
}

func TestRunFailsWithoutHandler(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "Go tips", "twitter")

	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:   logging.NewNop(),
		Store:    store,
		Handlers: func(pipeline.Stage) stageexec.Handler { return nil },
		Item:     item,
	})
	if !errors.Is(err, stageexec.ErrStageFailed) {
		t.Fatalf("expected ErrStageFailed, got %v", err)
	}
	if item.ErrorCode != "stage_unavailable" {
		t.Fatalf("unexpected code %q", item.ErrorCode)
	}
}

package daemon_test

import (
	"context"
	"os"
	"testing"

	"contentflow/internal/daemon"
	"contentflow/internal/logging"
	"contentflow/internal/queue"
	"contentflow/internal/stage"
	"contentflow/internal/testsupport"
	"contentflow/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Item) error { return nil }
func (noopStage) Execute(context.Context, *queue.Item) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newDaemon(t *testing.T) (*daemon.Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Text:    noopStage{},
		Image:   noopStage{},
		Audio:   noopStage{},
		Video:   noopStage{},
		Publish: noopStage{},
	})
	d, err := daemon.New(cfg, store, logger, mgr, daemon.Options{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if status := d.Status(ctx); !status.Running {
		t.Fatal("expected daemon to report running")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if status := d.Status(ctx); status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonResetsInterruptedItemsOnStart(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()

	item := testsupport.NewItem(t, store, "Edge caching", "linkedin")
	item.Status = queue.StatusProcessing
	testsupport.MustUpdate(t, store, item)

	if _, err := d.ResetStuck(ctx); err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("expected pending after reset, got %s", got.Status)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d, _ := newDaemon(t)
	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent {
		t.Fatal("expected no notification without a topic")
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestDaemonStartCleansOrphanedStaging(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{Text: noopStage{}, Image: noopStage{}, Audio: noopStage{}, Video: noopStage{}, Publish: noopStage{}})
	d, err := daemon.New(cfg, store, logger, mgr, daemon.Options{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	item := testsupport.NewItem(t, store, "Keep my files", "linkedin")
	kept := cfg.ItemStagingDir(item.ID)
	orphan := cfg.ItemStagingDir(item.ID + 100)
	for _, dir := range []string{kept, orphan} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("expected orphaned dir removed, stat err = %v", err)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("expected queued item's dir kept: %v", err)
	}
}

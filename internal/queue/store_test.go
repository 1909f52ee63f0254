package queue_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/testsupport"

	_ "modernc.org/sqlite"
)

func TestNewItemRequestsTextStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewItem(ctx, "  remote work tips ", "linkedin", "make")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Topic != "remote work tips" {
		t.Fatalf("expected trimmed topic, got %q", item.Topic)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", item.Status)
	}
	if item.LastStage != pipeline.StageText {
		t.Fatalf("expected text stage requested, got %q", item.LastStage)
	}
	want := map[pipeline.Stage]pipeline.Status{
		pipeline.StageText:       pipeline.StatusGenerating,
		pipeline.StageImage:      pipeline.StatusIdle,
		pipeline.StageAudio:      pipeline.StatusIdle,
		pipeline.StageVideo:      pipeline.StatusIdle,
		pipeline.StageSocialPost: pipeline.StatusIdle,
	}
	if diff := cmp.Diff(want, item.Stages.Map()); diff != "" {
		t.Fatalf("stage statuses mismatch (-want +got):\n%s", diff)
	}

	missing, err := store.GetByID(ctx, item.ID+100)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %#v", missing)
	}
}

func TestNewItemRequiresTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewItem(context.Background(), "   ", "linkedin", ""); err == nil {
		t.Fatal("expected error when topic missing")
	}
}

func TestUpdateRoundTripsArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, store, "AI in healthcare", "instagram")
	item.Status = queue.StatusProcessing
	if err := item.Complete(pipeline.StageText); err != nil {
		t.Fatalf("Complete text: %v", err)
	}
	if err := item.Begin(pipeline.StageImage); err != nil {
		t.Fatalf("Begin image: %v", err)
	}
	item.Text = "Healthcare is changing #AI #health"
	item.Hashtags = []string{"AI", "health"}
	item.ImageURL = "https://picsum.photos/seed/42/800/600"
	item.AudioDuration = 4.5
	now := time.Now().UTC().Truncate(time.Millisecond)
	item.LastHeartbeat = &now
	testsupport.MustUpdate(t, store, item)

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Text != item.Text || fetched.ImageURL != item.ImageURL || fetched.AudioDuration != 4.5 {
		t.Fatalf("artifacts not persisted: %#v", fetched)
	}
	if diff := cmp.Diff([]string{"AI", "health"}, fetched.Hashtags); diff != "" {
		t.Fatalf("hashtags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(item.Stages.Map(), fetched.Stages.Map()); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
	if fetched.LastStage != pipeline.StageImage || fetched.SingleStage {
		t.Fatalf("unexpected request: stage=%q single=%v", fetched.LastStage, fetched.SingleStage)
	}
	if fetched.LastHeartbeat == nil || !fetched.LastHeartbeat.Equal(now) {
		t.Fatalf("expected heartbeat %v, got %v", now, fetched.LastHeartbeat)
	}
}

func TestItemTransitionsSettleStatus(t *testing.T) {
	item := &queue.Item{}
	item.Start()

	if err := item.Complete(pipeline.StageText); err != nil {
		t.Fatalf("Complete text: %v", err)
	}
	if item.Status != queue.StatusPaused {
		t.Fatalf("expected paused between stages, got %s", item.Status)
	}

	if err := item.Regenerate(pipeline.StageText); err != nil {
		t.Fatalf("Regenerate text: %v", err)
	}
	if !item.SingleStage || item.Status != queue.StatusPending {
		t.Fatalf("expected single-stage pending request, got single=%v status=%s", item.SingleStage, item.Status)
	}
	if err := item.Fail(pipeline.StageText, "boom", "api_error"); err != nil {
		t.Fatalf("Fail text: %v", err)
	}
	if item.Status != queue.StatusFailed || item.FailedStage != pipeline.StageText || item.ErrorCode != "api_error" {
		t.Fatalf("unexpected failure state: %#v", item)
	}
	if err := item.Begin(pipeline.StageImage); !errors.Is(err, pipeline.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition after failure, got %v", err)
	}

	if err := item.Regenerate(pipeline.StageText); err != nil {
		t.Fatalf("Regenerate after failure: %v", err)
	}
	if item.ErrorMessage != "" || item.FailedStage != "" {
		t.Fatalf("expected failure cleared on regenerate, got %#v", item)
	}
}

func TestNextRunnableFiltersByStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewItem(t, store, "first", "linkedin")
	second := testsupport.NewItem(t, store, "second", "tiktok")

	// Move the first item to the video stage.
	for _, stage := range []pipeline.Stage{pipeline.StageText, pipeline.StageImage, pipeline.StageAudio} {
		if err := first.Complete(stage); err != nil {
			t.Fatalf("Complete %s: %v", stage, err)
		}
		next, _ := first.Stages.Next()
		if err := first.Begin(next); err != nil {
			t.Fatalf("Begin %s: %v", next, err)
		}
	}
	testsupport.MustUpdate(t, store, first)

	render, err := store.NextRunnable(ctx, pipeline.StageVideo)
	if err != nil {
		t.Fatalf("NextRunnable failed: %v", err)
	}
	if render == nil || render.ID != first.ID {
		t.Fatalf("expected first item on render lane, got %#v", render)
	}

	generate, err := store.NextRunnable(ctx, pipeline.StageText, pipeline.StageImage, pipeline.StageAudio, pipeline.StageSocialPost)
	if err != nil {
		t.Fatalf("NextRunnable failed: %v", err)
	}
	if generate == nil || generate.ID != second.ID {
		t.Fatalf("expected second item on generate lane, got %#v", generate)
	}

	second.Status = queue.StatusProcessing
	testsupport.MustUpdate(t, store, second)
	generate, err = store.NextRunnable(ctx, pipeline.StageText)
	if err != nil {
		t.Fatalf("NextRunnable failed: %v", err)
	}
	if generate != nil {
		t.Fatalf("expected nothing runnable, got %#v", generate)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stuck := testsupport.NewItem(t, store, "stuck", "linkedin")
	stuck.Status = queue.StatusProcessing
	now := time.Now()
	stuck.LastHeartbeat = &now
	testsupport.MustUpdate(t, store, stuck)

	paused := testsupport.NewItem(t, store, "paused", "linkedin")
	paused.Pause("")
	testsupport.MustUpdate(t, store, paused)

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item reset, got %d", count)
	}

	updated, err := store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if updated.Stages.Status(pipeline.StageText) != pipeline.StatusGenerating {
		t.Fatalf("expected text to stay generating, got %s", updated.Stages.Status(pipeline.StageText))
	}
	if updated.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stale := testsupport.NewItem(t, store, "stale", "linkedin")
	stale.Status = queue.StatusProcessing
	old := time.Now().Add(-time.Hour)
	stale.LastHeartbeat = &old
	testsupport.MustUpdate(t, store, stale)

	fresh := testsupport.NewItem(t, store, "fresh", "linkedin")
	fresh.Status = queue.StatusProcessing
	testsupport.MustUpdate(t, store, fresh)
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}

	got, _ := store.GetByID(ctx, stale.ID)
	if got.Status != queue.StatusPending {
		t.Fatalf("expected stale item pending, got %s", got.Status)
	}
	got, _ = store.GetByID(ctx, fresh.ID)
	if got.Status != queue.StatusProcessing || got.LastHeartbeat == nil {
		t.Fatalf("expected fresh item untouched, got %s heartbeat=%v", got.Status, got.LastHeartbeat)
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewItem(t, store, "A", "linkedin")
	b := testsupport.NewItem(t, store, "B", "linkedin")
	b.Pause("")
	testsupport.MustUpdate(t, store, b)
	c := testsupport.NewItem(t, store, "C", "linkedin")
	if err := c.Fail(pipeline.StageText, "boom", ""); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	testsupport.MustUpdate(t, store, c)

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Fatalf("expected order A,B,C, got IDs %d,%d,%d", items[0].ID, items[1].ID, items[2].ID)
	}

	filtered, err := store.List(ctx, queue.StatusPaused, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(filtered) != 2 || filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered items: %#v", filtered)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	want := queue.HealthSummary{Total: 3, Pending: 1, Paused: 1, Failed: 1}
	if diff := cmp.Diff(want, health); diff != "" {
		t.Fatalf("health mismatch (-want +got):\n%s", diff)
	}

	removed, err := store.ClearFailed(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearFailed = %d, %v", removed, err)
	}
	ok, err := store.Remove(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("Remove = %v, %v", ok, err)
	}
	ok, err = store.Remove(ctx, a.ID)
	if err != nil || ok {
		t.Fatalf("second Remove = %v, %v", ok, err)
	}
}

func TestClearKeepsProcessingItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	busy := testsupport.NewItem(t, store, "busy", "linkedin")
	busy.Status = queue.StatusProcessing
	testsupport.MustUpdate(t, store, busy)
	testsupport.NewItem(t, store, "idle", "linkedin")

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if got, _ := store.GetByID(ctx, busy.ID); got == nil {
		t.Fatal("expected processing item to survive Clear")
	}
	if ok, err := store.Remove(ctx, busy.ID); err != nil || ok {
		t.Fatalf("Remove on processing item = %v, %v", ok, err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, ok, err := store.GetSetting(ctx, queue.SettingMakeWebhookURL); err != nil || ok {
		t.Fatalf("expected missing setting, got ok=%v err=%v", ok, err)
	}
	if err := store.PutSetting(ctx, queue.SettingMakeWebhookURL, "https://hook.make.com/a"); err != nil {
		t.Fatalf("PutSetting failed: %v", err)
	}
	if err := store.PutSetting(ctx, queue.SettingMakeWebhookURL, "https://hook.make.com/b"); err != nil {
		t.Fatalf("PutSetting overwrite failed: %v", err)
	}
	value, ok, err := store.GetSetting(ctx, queue.SettingMakeWebhookURL)
	if err != nil || !ok || value != "https://hook.make.com/b" {
		t.Fatalf("GetSetting = %q, %v, %v", value, ok, err)
	}
	if err := store.PutSetting(ctx, queue.SettingMakeWebhookURL, ""); err != nil {
		t.Fatalf("PutSetting delete failed: %v", err)
	}
	if _, ok, _ := store.GetSetting(ctx, queue.SettingMakeWebhookURL); ok {
		t.Fatal("expected setting deleted")
	}
}

func TestConnections(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := store.SaveConnection(ctx, queue.Connection{Platform: "LinkedIn", AccessToken: "tok", ExpiresAt: expires}); err != nil {
		t.Fatalf("SaveConnection failed: %v", err)
	}
	conn, err := store.GetConnection(ctx, "linkedin")
	if err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}
	if conn == nil || conn.AccessToken != "tok" || !conn.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected connection: %#v", conn)
	}
	if !conn.Active(time.Now()) {
		t.Fatal("expected connection active before expiry")
	}
	if conn.Active(expires.Add(time.Second)) {
		t.Fatal("expected connection inactive after expiry")
	}

	deleted, err := store.DeleteConnection(ctx, "linkedin")
	if err != nil || !deleted {
		t.Fatalf("DeleteConnection = %v, %v", deleted, err)
	}
	if conn, _ := store.GetConnection(ctx, "linkedin"); conn != nil {
		t.Fatalf("expected connection removed, got %#v", conn)
	}
}

func TestConsumeOAuthState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	now := time.Now()

	if err := store.SaveOAuthState(ctx, "good", "linkedin", now.Add(10*time.Minute)); err != nil {
		t.Fatalf("SaveOAuthState failed: %v", err)
	}
	if err := store.SaveOAuthState(ctx, "old", "linkedin", now.Add(-time.Minute)); err != nil {
		t.Fatalf("SaveOAuthState failed: %v", err)
	}

	platform, ok, err := store.ConsumeOAuthState(ctx, "good", now)
	if err != nil || !ok || platform != "linkedin" {
		t.Fatalf("ConsumeOAuthState = %q, %v, %v", platform, ok, err)
	}
	if _, ok, _ := store.ConsumeOAuthState(ctx, "good", now); ok {
		t.Fatal("expected state to be single use")
	}
	if _, ok, _ := store.ConsumeOAuthState(ctx, "old", now); ok {
		t.Fatal("expected expired state rejected")
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	store.Close()

	db, err := sql.Open("sqlite", cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = version + 1"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := queue.Open(cfg); !errors.Is(err, queue.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestCheckHealthReportsColumns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewItem(t, store, "topic", "linkedin")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("unexpected missing columns: %v", health.MissingColumns)
	}
	if health.TotalItems != 1 {
		t.Fatalf("expected 1 item, got %d", health.TotalItems)
	}
}

func TestCheckHealthReportsMissingAuxiliaryColumns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	db, err := sql.Open("sqlite", cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("ALTER TABLE connections DROP COLUMN author_urn"); err != nil {
		t.Fatalf("drop column: %v", err)
	}

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if diff := cmp.Diff([]string{"connections.author_urn"}, health.MissingColumns); diff != "" {
		t.Fatalf("missing columns mismatch (-want +got):\n%s", diff)
	}
}

func TestActiveItemIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewItem(t, store, "A", "linkedin")
	b := testsupport.NewItem(t, store, "B", "twitter")
	if _, err := store.Remove(ctx, a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	ids, err := store.ActiveItemIDs(ctx)
	if err != nil {
		t.Fatalf("ActiveItemIDs: %v", err)
	}
	if diff := cmp.Diff(map[int64]struct{}{b.ID: {}}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

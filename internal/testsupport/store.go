package testsupport

import (
	"context"
	"testing"

	"contentflow/internal/config"
	"contentflow/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem creates a content item for tests using the provided store.
func NewItem(t testing.TB, store *queue.Store, topic, platform string) *queue.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), topic, platform, "")
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}

// MustUpdate persists an item and fails the test on error.
func MustUpdate(t testing.TB, store *queue.Store, item *queue.Item) {
	t.Helper()

	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
}

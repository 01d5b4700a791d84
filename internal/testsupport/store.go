package testsupport

import (
	"bytes"
	"context"
	"testing"

	"fieldsync/internal/config"
	"fieldsync/internal/queue"
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

// EnqueueItem creates a pending photo item for tests using the provided store.
func EnqueueItem(t testing.TB, store *queue.Store, projectID string) *queue.Item {
	t.Helper()

	item, err := store.Enqueue(context.Background(), bytes.NewReader([]byte("test payload")), queue.Metadata{
		ProjectID:   projectID,
		MediaKind:   queue.MediaPhoto,
		SourceName:  "capture.jpg",
		ContentType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}

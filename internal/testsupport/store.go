package testsupport

import (
	"context"
	"testing"
	"time"

	"adiengine/internal/config"
	"adiengine/internal/queue"
	"adiengine/internal/tracking"
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

// MustOpenTracking opens a tracking.Store for tests and registers cleanup.
func MustOpenTracking(t testing.TB, cfg *config.Config) *tracking.Store {
	t.Helper()

	store, err := tracking.Open(cfg)
	if err != nil {
		t.Fatalf("tracking.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewQueuedPackage creates a pending queue item for tests.
func NewQueuedPackage(t testing.TB, store *queue.Store, packagePath string) *queue.Item {
	t.Helper()

	item, err := store.NewPackage(context.Background(), packagePath, time.Now())
	if err != nil {
		t.Fatalf("store.NewPackage: %v", err)
	}
	return item
}

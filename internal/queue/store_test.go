package queue_test

import (
	"context"
	"testing"
	"time"

	"adiengine/internal/queue"
	"adiengine/internal/testsupport"
)

func TestOpenAppliesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewPackage(ctx, "/drop/input/TITL0000000000000001.zip", time.Now())
	if err != nil {
		t.Fatalf("NewPackage failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("new package status = %q, want pending", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.PackagePath != item.PackagePath {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	found, err := store.FindByPackagePath(ctx, item.PackagePath)
	if err != nil {
		t.Fatalf("FindByPackagePath failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestFindActiveByPAIDExcludesSelfAndTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewQueuedPackage(t, store, "/drop/a.zip")
	first.PAID = "TITL0000000000000042"
	first.Status = queue.StatusMapped
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	second := testsupport.NewQueuedPackage(t, store, "/drop/b.zip")
	second.PAID = "TITL0000000000000042"
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	active, err := store.FindActiveByPAID(ctx, "TITL0000000000000042", second.ID)
	if err != nil {
		t.Fatalf("FindActiveByPAID failed: %v", err)
	}
	if active == nil || active.ID != first.ID {
		t.Fatalf("expected first item to be reported active, got %#v", active)
	}

	first.Status = queue.StatusCompleted
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	active, err = store.FindActiveByPAID(ctx, "TITL0000000000000042", second.ID)
	if err != nil {
		t.Fatalf("FindActiveByPAID failed: %v", err)
	}
	if active != nil {
		t.Fatalf("completed items must not count as active, got %#v", active)
	}
}

func TestNextForStatusesReturnsOldestMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewQueuedPackage(t, store, "/drop/first.zip")
	second := testsupport.NewQueuedPackage(t, store, "/drop/second.zip")

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item %d, got %#v", first.ID, next)
	}

	first.Status = queue.StatusImporting
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	next, err = store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("expected second item, got %#v", next)
	}

	next, err = store.NextForStatuses(ctx, queue.StatusEnriched)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no enriched item, got %#v", next)
	}
}

func TestResetStuckProcessingRollsBackToStageStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cases := []struct {
		in   queue.Status
		want queue.Status
	}{
		{queue.StatusImporting, queue.StatusPending},
		{queue.StatusMapping, queue.StatusImported},
		{queue.StatusEnriching, queue.StatusMapped},
		{queue.StatusPackaging, queue.StatusEnriched},
		{queue.StatusDelivering, queue.StatusPackaged},
	}
	items := make([]*queue.Item, len(cases))
	for i, tc := range cases {
		item := testsupport.NewQueuedPackage(t, store, "/drop/stuck-"+string(tc.in)+".zip")
		item.Status = tc.in
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		items[i] = item
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if count != int64(len(cases)) {
		t.Fatalf("reset %d items, want %d", count, len(cases))
	}
	for i, tc := range cases {
		got, err := store.GetByID(ctx, items[i].ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.Status != tc.want {
			t.Fatalf("status %q rolled back to %q, want %q", tc.in, got.Status, tc.want)
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stale := testsupport.NewQueuedPackage(t, store, "/drop/stale.zip")
	old := time.Now().Add(-time.Hour)
	stale.Status = queue.StatusEnriching
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := testsupport.NewQueuedPackage(t, store, "/drop/fresh.zip")
	now := time.Now()
	fresh.Status = queue.StatusEnriching
	fresh.LastHeartbeat = &now
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("reclaimed %d items, want 1", count)
	}

	got, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusMapped {
		t.Fatalf("stale item status = %q, want mapped", got.Status)
	}
	got, err = store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusEnriching {
		t.Fatalf("fresh item status = %q, want enriching", got.Status)
	}
}

func TestRequeueNonMapped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewQueuedPackage(t, store, "/drop/nonmapped.zip")
	item.Status = queue.StatusFailedToMap
	item.ErrorMessage = "asset is not yet mapped by the provider"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RequeueNonMapped(ctx)
	if err != nil {
		t.Fatalf("RequeueNonMapped failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("requeued %d items, want 1", count)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusImported {
		t.Fatalf("status = %q, want imported", got.Status)
	}
}

func TestRetryFailedTargetsSubset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	failedA := testsupport.NewQueuedPackage(t, store, "/drop/failed-a.zip")
	failedA.SetFailed("boom")
	if err := store.Update(ctx, failedA); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failedB := testsupport.NewQueuedPackage(t, store, "/drop/failed-b.zip")
	failedB.SetFailed("boom")
	if err := store.Update(ctx, failedB); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, failedA.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("retried %d items, want 1", count)
	}

	got, err := store.GetByID(ctx, failedA.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("retried item status = %q, want pending", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Fatalf("retried item keeps error message %q", got.ErrorMessage)
	}

	got, err = store.GetByID(ctx, failedB.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("untouched item status = %q, want failed", got.Status)
	}
}

func TestStatsBuckets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	statuses := []queue.Status{
		queue.StatusPending,
		queue.StatusPending,
		queue.StatusCompleted,
		queue.StatusFailed,
		queue.StatusFailedToMap,
	}
	for i, status := range statuses {
		item := testsupport.NewQueuedPackage(t, store, "/drop/stats-"+string(rune('a'+i))+".zip")
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != len(statuses) {
		t.Fatalf("total = %d, want %d", stats.Total, len(statuses))
	}
	if stats.Waiting != 3 {
		t.Fatalf("waiting = %d, want 3 (pending + failed_to_map)", stats.Waiting)
	}
	if stats.Completed != 1 || stats.Failed != 1 {
		t.Fatalf("completed = %d failed = %d, want 1 and 1", stats.Completed, stats.Failed)
	}
}

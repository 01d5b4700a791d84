package queue_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fieldsync/internal/queue"
	"fieldsync/internal/testsupport"
)

func TestEnqueuePersistsItemAndPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lat := 47.6062
	lon := -122.3321
	payload := []byte("jpeg payload bytes")
	item, err := store.Enqueue(ctx, bytes.NewReader(payload), queue.Metadata{
		ProjectID:    "bridge-214",
		ActivityType: "rebar inspection",
		Location:     "pier 4",
		Notes:        "north face",
		Tags:         []string{"rebar", "pier-4"},
		MediaKind:    queue.MediaPhoto,
		Latitude:     &lat,
		Longitude:    &lon,
		SourceName:   "IMG_0042.jpg",
		ContentType:  "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.SizeBytes != int64(len(payload)) {
		t.Fatalf("size = %d, want %d", item.SizeBytes, len(payload))
	}
	if item.Checksum == "" {
		t.Fatal("expected checksum to be recorded")
	}
	if item.Latitude == nil || *item.Latitude != lat {
		t.Fatalf("latitude not round-tripped: %v", item.Latitude)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "rebar" {
		t.Fatalf("tags not round-tripped: %v", item.Tags)
	}

	data, err := os.ReadFile(item.PayloadPath)
	if err != nil {
		t.Fatalf("payload not spooled: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("payload bytes mismatch")
	}
	if !strings.HasSuffix(item.PayloadPath, ".jpg") {
		t.Fatalf("payload name should keep source extension: %s", item.PayloadPath)
	}
}

func TestEnqueueRequiresProjectID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Enqueue(context.Background(), bytes.NewReader([]byte("x")), queue.Metadata{
		MediaKind: queue.MediaPhoto,
	})
	if err == nil {
		t.Fatal("expected error when project id missing")
	}
}

func TestEnqueueRejectsUnknownMediaKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Enqueue(context.Background(), bytes.NewReader([]byte("x")), queue.Metadata{
		ProjectID: "bridge-214",
		MediaKind: queue.MediaKind("audio"),
	})
	if err == nil {
		t.Fatal("expected error for unknown media kind")
	}
}

func TestTryClaimWinsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	now := time.Now()
	staleAfter := 5 * time.Minute

	claimed, err := store.TryClaim(ctx, item.ID, now, staleAfter)
	if err != nil {
		t.Fatalf("TryClaim failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	again, err := store.TryClaim(ctx, item.ID, now, staleAfter)
	if err != nil {
		t.Fatalf("TryClaim failed: %v", err)
	}
	if again {
		t.Fatal("expected second claim to lose")
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusSyncing {
		t.Fatalf("expected syncing status, got %s", updated.Status)
	}
	if updated.ClaimedAt == nil {
		t.Fatal("expected claimed_at to be set")
	}
}

func TestTryClaimReclaimsStaleClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	start := time.Now()
	staleAfter := 5 * time.Minute

	if claimed, err := store.TryClaim(ctx, item.ID, start, staleAfter); err != nil || !claimed {
		t.Fatalf("initial claim: claimed=%v err=%v", claimed, err)
	}

	// A fresh claim cannot be stolen.
	if claimed, err := store.TryClaim(ctx, item.ID, start.Add(time.Minute), staleAfter); err != nil || claimed {
		t.Fatalf("fresh claim stolen: claimed=%v err=%v", claimed, err)
	}

	// Once the heartbeat ages past the stale window the claim is up for grabs.
	claimed, err := store.TryClaim(ctx, item.ID, start.Add(staleAfter+time.Minute), staleAfter)
	if err != nil {
		t.Fatalf("TryClaim failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected stale claim to be reclaimable")
	}
}

func TestTouchKeepsClaimFresh(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	now := time.Now()
	if claimed, err := store.TryClaim(ctx, item.ID, now, time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}

	before, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if err := store.Touch(ctx, item.ID); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	after, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if after.LastHeartbeat == nil || before.LastHeartbeat == nil {
		t.Fatal("expected heartbeats to be set")
	}
	if after.LastHeartbeat.Before(*before.LastHeartbeat) {
		t.Fatal("expected heartbeat to advance")
	}
}

func TestMarkSyncedRecordsRemoteID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	if claimed, err := store.TryClaim(ctx, item.ID, time.Now(), time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.MarkSynced(ctx, item.ID, "srv-9921"); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusSynced {
		t.Fatalf("expected synced status, got %s", updated.Status)
	}
	if updated.RemoteID != "srv-9921" {
		t.Fatalf("remote id = %q, want srv-9921", updated.RemoteID)
	}
	if updated.ClaimedAt != nil || updated.LastHeartbeat != nil {
		t.Fatal("expected claim cleared after sync")
	}
}

func TestMarkSyncedRequiresClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.EnqueueItem(t, store, "bridge-214")
	if err := store.MarkSynced(context.Background(), item.ID, "srv-1"); err == nil {
		t.Fatal("expected error marking unclaimed item synced")
	}
}

func TestMarkFailedTransientReturnsToPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	if claimed, err := store.TryClaim(ctx, item.ID, time.Now(), time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.MarkFailed(ctx, item.ID, "connection reset", false); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", updated.Status)
	}
	if updated.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", updated.Attempts)
	}
	if updated.LastError != "connection reset" {
		t.Fatalf("last error = %q", updated.LastError)
	}
}

func TestMarkFailedPermanentGoesStraightToFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	if claimed, err := store.TryClaim(ctx, item.ID, time.Now(), time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.MarkFailed(ctx, item.ID, "server rejected metadata", true); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", updated.Status)
	}
	if updated.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", updated.Attempts)
	}
}

func TestMarkFailedExhaustsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(2))
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	for attempt := 1; attempt <= 2; attempt++ {
		if claimed, err := store.TryClaim(ctx, item.ID, time.Now(), time.Minute); err != nil || !claimed {
			t.Fatalf("claim %d: claimed=%v err=%v", attempt, claimed, err)
		}
		if err := store.MarkFailed(ctx, item.ID, "timeout", false); err != nil {
			t.Fatalf("MarkFailed %d failed: %v", attempt, err)
		}
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusFailed {
		t.Fatalf("expected failed after exhausting attempts, got %s", updated.Status)
	}
	if updated.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", updated.Attempts)
	}
}

func TestReleaseClaimDoesNotChargeAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	if claimed, err := store.TryClaim(ctx, item.ID, time.Now(), time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.ReleaseClaim(ctx, item.ID); err != nil {
		t.Fatalf("ReleaseClaim failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", updated.Status)
	}
	if updated.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0", updated.Attempts)
	}
}

func TestListEligibleOrdersByCaptureTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.EnqueueItem(t, store, "bridge-214")
	second := testsupport.EnqueueItem(t, store, "bridge-214")
	third := testsupport.EnqueueItem(t, store, "bridge-214")

	// Claim the middle item so only pending items remain eligible.
	if claimed, err := store.TryClaim(ctx, second.ID, time.Now(), 5*time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}

	eligible, err := store.ListEligible(ctx, time.Now(), 5*time.Minute)
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible items, got %d", len(eligible))
	}
	if eligible[0].ID != first.ID || eligible[1].ID != third.ID {
		t.Fatalf("unexpected eligibility order: %d, %d", eligible[0].ID, eligible[1].ID)
	}
}

func TestListEligibleIncludesStaleClaims(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	start := time.Now()
	staleAfter := 5 * time.Minute
	if claimed, err := store.TryClaim(ctx, item.ID, start, staleAfter); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}

	fresh, err := store.ListEligible(ctx, start.Add(time.Minute), staleAfter)
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("freshly claimed item should not be eligible, got %d items", len(fresh))
	}

	stale, err := store.ListEligible(ctx, start.Add(staleAfter+time.Minute), staleAfter)
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != item.ID {
		t.Fatalf("expected stale claim to be eligible, got %d items", len(stale))
	}
}

func TestReclaimStale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	start := time.Now()
	staleAfter := 5 * time.Minute
	if claimed, err := store.TryClaim(ctx, item.ID, start, staleAfter); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}

	count, err := store.ReclaimStale(ctx, start.Add(staleAfter+time.Minute), staleAfter)
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after reclaim, got %s", updated.Status)
	}
	if updated.ClaimedAt != nil || updated.LastHeartbeat != nil {
		t.Fatal("expected claim fields cleared after reclaim")
	}
}

func TestRetryFailedResetsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(1))
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	if claimed, err := store.TryClaim(ctx, item.ID, time.Now(), time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.MarkFailed(ctx, item.ID, "timeout", false); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried item, got %d", count)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", updated.Status)
	}
	if updated.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0 after retry", updated.Attempts)
	}
	if updated.LastError != "" {
		t.Fatalf("last error should be cleared, got %q", updated.LastError)
	}
}

func TestRetryFailedSelectedIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(1))
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.EnqueueItem(t, store, "bridge-214")
	b := testsupport.EnqueueItem(t, store, "bridge-214")

	for _, item := range []*queue.Item{a, b} {
		if claimed, err := store.TryClaim(ctx, item.ID, time.Now(), time.Minute); err != nil || !claimed {
			t.Fatalf("claim: claimed=%v err=%v", claimed, err)
		}
		if err := store.MarkFailed(ctx, item.ID, "timeout", false); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
	}

	count, err := store.RetryFailed(ctx, a.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried item, got %d", count)
	}

	stillFailed, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stillFailed.Status != queue.StatusFailed {
		t.Fatalf("unselected item should remain failed, got %s", stillFailed.Status)
	}
}

func TestCountTracksUnsyncedItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.EnqueueItem(t, store, "bridge-214")
	testsupport.EnqueueItem(t, store, "bridge-214")

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	if claimed, err := store.TryClaim(ctx, a.ID, time.Now(), time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.MarkSynced(ctx, a.ID, "srv-1"); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	count, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 after sync", count)
	}
}

func TestRemoveDeletesPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueItem(t, store, "bridge-214")

	removed, err := store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected item to be removed")
	}
	if _, err := os.Stat(item.PayloadPath); !os.IsNotExist(err) {
		t.Fatal("expected payload file to be deleted")
	}

	missing, err := store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if missing {
		t.Fatal("removing a missing item should report false")
	}
}

func TestClearSyncedRemovesPayloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	synced := testsupport.EnqueueItem(t, store, "bridge-214")
	pending := testsupport.EnqueueItem(t, store, "bridge-214")

	if claimed, err := store.TryClaim(ctx, synced.ID, time.Now(), time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.MarkSynced(ctx, synced.ID, "srv-1"); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	count, err := store.ClearSynced(ctx)
	if err != nil {
		t.Fatalf("ClearSynced failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 cleared item, got %d", count)
	}
	if _, err := os.Stat(synced.PayloadPath); !os.IsNotExist(err) {
		t.Fatal("synced payload should be deleted")
	}
	if _, err := os.Stat(pending.PayloadPath); err != nil {
		t.Fatalf("pending payload should survive: %v", err)
	}
}

func TestHealthAggregatesStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.EnqueueItem(t, store, "bridge-214")
	testsupport.EnqueueItem(t, store, "bridge-214")

	if claimed, err := store.TryClaim(ctx, a.ID, time.Now(), time.Minute); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Syncing != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.EnqueueItem(t, store, "bridge-214")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected database health: %+v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("missing columns reported: %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("integrity check should pass")
	}
	if health.TotalItems != 1 {
		t.Fatalf("total items = %d, want 1", health.TotalItems)
	}
}

func TestSweepOrphanPayloadsRemovesUnreferencedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.EnqueueItem(t, store, "bridge-214")

	orphan := filepath.Join(store.PayloadDir(), "leftover.blob")
	if err := os.WriteFile(orphan, []byte("abandoned"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	aged := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(orphan, aged, aged); err != nil {
		t.Fatalf("age orphan: %v", err)
	}

	fresh := filepath.Join(store.PayloadDir(), "inflight.blob")
	if err := os.WriteFile(fresh, []byte("spooling"), 0o644); err != nil {
		t.Fatalf("write fresh file: %v", err)
	}

	removed, err := store.SweepOrphanPayloads(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("SweepOrphanPayloads: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("aged orphan should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("recently modified file must survive the sweep: %v", err)
	}
	if _, err := os.Stat(item.PayloadPath); err != nil {
		t.Fatalf("referenced payload must survive the sweep: %v", err)
	}

	removed, err = store.SweepOrphanPayloads(context.Background(), 0)
	if err != nil {
		t.Fatalf("SweepOrphanPayloads without age guard: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(fresh); !os.IsNotExist(err) {
		t.Fatal("unreferenced file should be removed without the age guard")
	}
}

func TestOpenSweepsStaleOrphanPayloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.EnqueueItem(t, store, "bridge-214")

	orphan := filepath.Join(store.PayloadDir(), "crashed.blob")
	if err := os.WriteFile(orphan, []byte("abandoned"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	aged := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(orphan, aged, aged); err != nil {
		t.Fatalf("age orphan: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() {
		reopened.Close()
	})

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("open should sweep stale orphan payloads")
	}
	if _, err := os.Stat(item.PayloadPath); err != nil {
		t.Fatalf("referenced payload must survive reopen: %v", err)
	}
	if _, err := reopened.GetByID(context.Background(), item.ID); err != nil {
		t.Fatalf("GetByID after reopen: %v", err)
	}
}

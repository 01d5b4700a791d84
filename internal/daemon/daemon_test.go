package daemon_test

import (
	"context"
	"testing"
	"time"

	"fieldsync/internal/config"
	"fieldsync/internal/daemon"
	"fieldsync/internal/queue"
	"fieldsync/internal/services/mediaserver"
	"fieldsync/internal/syncer"
	"fieldsync/internal/testsupport"
)

type okUploader struct{}

func (okUploader) Upload(ctx context.Context, item *queue.Item) (mediaserver.UploadResult, error) {
	return mediaserver.UploadResult{RemoteID: "srv-1"}, nil
}

func newDaemon(t *testing.T, cfg *config.Config, store *queue.Store) *daemon.Daemon {
	t.Helper()
	orch := syncer.New(cfg, store, okUploader{}, nil, nil, nil)
	d, err := daemon.New(cfg, store, nil, orch, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}
	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("status should report running")
	}
	if status.PID <= 0 {
		t.Fatalf("status PID = %d", status.PID)
	}

	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("status should report stopped")
	}
	// Stop twice is a no-op.
	d.Stop()
}

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, store)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	second := newDaemon(t, cfg, store)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestDaemonSyncNow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	item := testsupport.EnqueueItem(t, store, "bridge-214")

	d.SyncNow()

	deadline := time.Now().Add(5 * time.Second)
	for {
		current, err := store.GetByID(context.Background(), item.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.Status == queue.StatusSynced {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("item never synced; status = %s", current.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemonStatusIncludesQueueStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	testsupport.EnqueueItem(t, store, "bridge-214")
	testsupport.EnqueueItem(t, store, "bridge-214")

	status := d.Status(context.Background())
	if status.QueueStats["pending"] != 2 {
		t.Fatalf("pending stats = %d, want 2", status.QueueStats["pending"])
	}
	if status.QueueDBPath == "" || status.LockPath == "" {
		t.Fatal("status should carry database and lock paths")
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if sent {
		t.Fatal("notification should not send without a topic")
	}
	if message == "" {
		t.Fatal("expected an explanatory message")
	}
}

// Package daemon ties the long-running services together: the queue store,
// the connectivity monitor, and the sync orchestrator, behind a single-
// instance lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"fieldsync/internal/api"
	"fieldsync/internal/config"
	"fieldsync/internal/logging"
	"fieldsync/internal/logtail"
	"fieldsync/internal/netmon"
	"fieldsync/internal/notifications"
	"fieldsync/internal/queue"
	"fieldsync/internal/syncer"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	monitor *netmon.Monitor
	orch    *syncer.Orchestrator

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized collaborators. The monitor may be
// nil when connectivity probing is disabled.
func New(cfg *config.Config, store *queue.Store, monitor *netmon.Monitor, orch *syncer.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil {
		return nil, errors.New("daemon requires config, store, and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String("component", "daemon")),
		store:    store,
		monitor:  monitor,
		orch:     orch,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the monitor and orchestrator.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fieldsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.monitor != nil {
		if err := d.monitor.Start(runCtx); err != nil {
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return fmt.Errorf("start network monitor: %w", err)
		}
	}
	if err := d.orch.Start(runCtx); err != nil {
		if d.monitor != nil {
			d.monitor.Stop()
		}
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start sync orchestrator: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("fieldsync daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

// Stop drains in-flight work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	// Monitor goes down first so no online edge can start a pass while the
	// orchestrator drains.
	if d.monitor != nil {
		d.monitor.Stop()
	}
	d.orch.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("fieldsync daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"),
	)
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// SyncNow triggers a sync pass and returns its current snapshot.
func (d *Daemon) SyncNow() api.SyncStatus {
	progress := d.orch.StartSync()
	return api.FromProgress(progress, d.orch.IsSyncInProgress())
}

// Online reports the monitor's current connectivity verdict. Without a
// monitor the daemon assumes connectivity.
func (d *Daemon) Online() bool {
	if d.monitor == nil {
		return true
	}
	return d.monitor.Online()
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	return d.store.List(ctx, statuses...)
}

// GetQueueItem returns a single queue item, or nil when the id is unknown.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	return d.store.GetByID(ctx, id)
}

// QueueStats returns queue counts by status.
func (d *Daemon) QueueStats(ctx context.Context) (map[queue.Status]int, error) {
	return d.store.Stats(ctx)
}

// RetryFailed resets failed items (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// RemoveItems deletes specific items and their payload files.
func (d *Daemon) RemoveItems(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := d.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

// ClearSynced removes delivered items and their local payload copies.
func (d *Daemon) ClearSynced(ctx context.Context) (int64, error) {
	return d.store.ClearSynced(ctx)
}

// ClearFailed removes dead-lettered items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TailLog reads lines from the active daemon run log. A negative offset
// requests the trailing limit lines.
func (d *Daemon) TailLog(ctx context.Context, offset int64, limit int) (logtail.Chunk, error) {
	return logtail.Read(ctx, d.cfg.CurrentLogPath(), logtail.Request{Offset: offset, Limit: limit})
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		Online:      d.Online(),
		QueueDBPath: d.cfg.QueueDBPath(),
		LockPath:    d.lockPath,
	}

	progress, active := d.orch.Status()
	status.Sync = api.FromProgress(progress, active)

	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
	} else {
		status.QueueStats = make(map[string]int, len(stats))
		for k, v := range stats {
			status.QueueStats[string(k)] = v
		}
	}
	return status
}

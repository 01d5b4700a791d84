package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"fieldsync/internal/config"
	"fieldsync/internal/logging"
	"fieldsync/internal/netmon"
	"fieldsync/internal/notifications"
	"fieldsync/internal/queue"
	"fieldsync/internal/services"
	"fieldsync/internal/services/mediaserver"
)

// Connectivity is the slice of the network monitor the orchestrator needs.
type Connectivity interface {
	Online() bool
	Subscribe(fn netmon.Subscriber)
}

// Subscriber receives pass snapshots.
type Subscriber func(Progress)

// Orchestrator drives sync passes over the queue store.
type Orchestrator struct {
	store    *queue.Store
	uploader mediaserver.Uploader
	monitor  Connectivity
	notifier notifications.Service
	logger   *slog.Logger

	workerCount       int
	staleAfter        time.Duration
	syncInterval      time.Duration
	heartbeatInterval time.Duration

	mu           sync.Mutex
	running      bool
	stopped      bool
	active       *session
	lastProgress *Progress
	progressSubs []Subscriber
	completeSubs []Subscriber

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an orchestrator. The monitor may be nil, in which case every
// pass assumes connectivity and lets upload failures speak for themselves.
func New(cfg *config.Config, store *queue.Store, uploader mediaserver.Uploader, monitor Connectivity, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	workerCount := cfg.Sync.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	heartbeat := time.Duration(cfg.Sync.HeartbeatInterval) * time.Second
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Orchestrator{
		store:             store,
		uploader:          uploader,
		monitor:           monitor,
		notifier:          notifier,
		logger:            logger.With(logging.String("component", "syncer")),
		workerCount:       workerCount,
		staleAfter:        time.Duration(cfg.Sync.StaleClaimTimeout) * time.Second,
		syncInterval:      time.Duration(cfg.Sync.SyncInterval) * time.Second,
		heartbeatInterval: heartbeat,
	}
}

// OnProgress registers fn for per-item progress snapshots. When a pass is
// active or has already run, fn immediately receives the latest snapshot so
// late subscribers never start blind.
func (o *Orchestrator) OnProgress(fn Subscriber) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.progressSubs = append(o.progressSubs, fn)
	var replay *Progress
	if o.active != nil {
		snap := o.active.snapshot()
		replay = &snap
	} else if o.lastProgress != nil {
		snap := *o.lastProgress
		replay = &snap
	}
	o.mu.Unlock()

	if replay != nil {
		fn(*replay)
	}
}

// OnComplete registers fn for the single completion snapshot each pass emits.
// When a pass has already completed, fn immediately receives that snapshot;
// an active pass delivers its completion when it finishes.
func (o *Orchestrator) OnComplete(fn Subscriber) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.completeSubs = append(o.completeSubs, fn)
	var replay *Progress
	if o.active == nil && o.lastProgress != nil {
		snap := *o.lastProgress
		replay = &snap
	}
	o.mu.Unlock()

	if replay != nil {
		fn(*replay)
	}
}

// IsSyncInProgress reports whether a pass is active.
func (o *Orchestrator) IsSyncInProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// Status returns the live pass snapshot, or the last completed one when idle.
func (o *Orchestrator) Status() (Progress, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		return o.active.snapshot(), true
	}
	if o.lastProgress != nil {
		return *o.lastProgress, false
	}
	return Progress{State: StateIdle}, false
}

// Start launches the background triggers: an initial pass to drain any
// backlog left from a previous run, a pass on every connectivity restore,
// and a periodic pass while online.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return errors.New("syncer already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.runCtx = runCtx
	o.cancel = cancel
	o.running = true
	o.stopped = false
	o.mu.Unlock()

	if _, err := o.store.ReclaimStale(runCtx, time.Now(), o.staleAfter); err != nil {
		o.logger.Warn("stale claim reclaim failed; abandoned items recover via claim expiry",
			logging.Error(err),
		)
	}

	if o.monitor != nil {
		o.monitor.Subscribe(func(online bool) {
			if online {
				o.logger.Info("connectivity restored; starting sync pass",
					logging.String(logging.FieldEventType, "sync_trigger_online"),
				)
				o.StartSync()
			}
		})
	}

	o.wg.Add(1)
	go o.timerLoop(runCtx)

	if o.online() {
		o.StartSync()
	}
	return nil
}

// Stop cancels in-flight work and waits for the active pass to drain.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.stopped = true
	o.cancel = nil
	o.runCtx = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

// StartSync begins a pass, or returns the live pass snapshot when one is
// already active. Only one pass runs at a time. After Stop, no new pass
// starts; the last completed snapshot is returned instead, so a straggling
// connectivity callback cannot race the owner closing the store.
func (o *Orchestrator) StartSync() Progress {
	o.mu.Lock()
	if o.stopped {
		if o.lastProgress != nil {
			snap := *o.lastProgress
			o.mu.Unlock()
			return snap
		}
		o.mu.Unlock()
		return Progress{State: StateIdle}
	}
	if o.active != nil {
		snap := o.active.snapshot()
		o.mu.Unlock()
		return snap
	}
	s := newSession()
	o.active = s
	ctx := o.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	o.wg.Add(1)
	snap := s.snapshot()
	o.mu.Unlock()

	go o.runPass(ctx, s)
	return snap
}

func (o *Orchestrator) timerLoop(ctx context.Context) {
	defer o.wg.Done()
	if o.syncInterval <= 0 {
		return
	}
	ticker := time.NewTicker(o.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.online() {
				o.StartSync()
			}
		}
	}
}

func (o *Orchestrator) online() bool {
	if o.monitor == nil {
		return true
	}
	return o.monitor.Online()
}

func (o *Orchestrator) runPass(ctx context.Context, s *session) {
	defer o.wg.Done()

	logger := o.logger.With(logging.String(logging.FieldSessionID, s.id))
	ctx = services.WithSessionID(ctx, s.id)

	items, err := o.store.ListEligible(ctx, time.Now(), o.staleAfter)
	if err != nil {
		logger.Error("queue scan failed; sync pass aborted",
			logging.Error(err),
			logging.String(logging.FieldEventType, "sync_scan_failed"),
			logging.String(logging.FieldErrorHint, "check queue database health"),
		)
		if notifyErr := o.notifier.NotifyError(ctx, err, "sync"); notifyErr != nil {
			logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		o.finishPass(s, logger)
		return
	}

	o.mu.Lock()
	s.total = len(items)
	s.state = StateRunning
	snap := s.snapshot()
	o.mu.Unlock()
	o.publish(o.progressSubscribers(), snap)

	logger.Info("sync pass started",
		logging.Int("eligible_items", len(items)),
		logging.Int("workers", o.workerCount),
		logging.String(logging.FieldEventType, "sync_pass_started"),
	)
	if len(items) > 0 {
		if err := o.notifier.NotifySyncStarted(ctx, len(items)); err != nil {
			logger.Warn("sync started notification failed", logging.Error(err))
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.workerCount)

	for _, item := range items {
		if groupCtx.Err() != nil {
			break
		}
		if !o.online() {
			o.mu.Lock()
			s.state = StateDraining
			o.mu.Unlock()
			logger.Info("connectivity lost; draining sync pass",
				logging.String(logging.FieldEventType, "sync_pass_draining"),
			)
			break
		}
		item := item
		group.Go(func() error {
			o.processItem(groupCtx, s, logger, item)
			return nil
		})
	}
	_ = group.Wait()

	o.finishPass(s, logger)
}

func (o *Orchestrator) processItem(ctx context.Context, s *session, logger *slog.Logger, item *queue.Item) {
	itemLogger := logger.With(logging.Int64(logging.FieldItemID, item.ID))
	ctx = services.WithItemID(ctx, item.ID)

	claimed, err := o.store.TryClaim(ctx, item.ID, time.Now(), o.staleAfter)
	if err != nil {
		itemLogger.Error("claim failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "sync_claim_failed"),
		)
		o.recordItem(s, func(s *session) { s.failed++ })
		return
	}
	if !claimed {
		itemLogger.Debug("claim lost; item handled elsewhere")
		o.recordItem(s, func(s *session) { s.skipped++ })
		return
	}

	o.mu.Lock()
	s.current = itemLabel(item)
	snap := s.snapshot()
	o.mu.Unlock()
	o.publish(o.progressSubscribers(), snap)

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	var heartbeatWG sync.WaitGroup
	heartbeatWG.Add(1)
	go o.heartbeatLoop(heartbeatCtx, &heartbeatWG, item.ID, itemLogger)

	result, uploadErr := o.uploader.Upload(ctx, item)

	stopHeartbeat()
	heartbeatWG.Wait()

	if uploadErr == nil {
		if err := o.store.MarkSynced(ctx, item.ID, result.RemoteID); err != nil {
			itemLogger.Error("upload succeeded but status update failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "sync_mark_failed"),
				logging.String(logging.FieldErrorHint, "item will be retried; server may hold a duplicate"),
			)
			o.recordItem(s, func(s *session) { s.failed++ })
			return
		}
		itemLogger.Info("item uploaded",
			logging.String("remote_id", result.RemoteID),
			logging.String(logging.FieldEventType, "item_synced"),
		)
		o.recordItem(s, func(s *session) { s.succeeded++ })
		return
	}

	if ctx.Err() != nil {
		// Shutdown or drain interrupted the upload. Hand the claim back
		// without charging an attempt; a clean retry follows next pass.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.store.ReleaseClaim(releaseCtx, item.ID); err != nil {
			itemLogger.Warn("claim release failed; item recovers via claim expiry",
				logging.Error(err),
			)
		}
		o.recordItem(s, func(s *session) { s.skipped++ })
		return
	}

	permanent := services.IsPermanent(uploadErr)
	if err := o.store.MarkFailed(ctx, item.ID, uploadErr.Error(), permanent); err != nil {
		itemLogger.Error("failure bookkeeping failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "sync_mark_failed"),
		)
		o.recordItem(s, func(s *session) { s.failed++ })
		return
	}

	itemLogger.Warn("item upload failed",
		logging.Error(uploadErr),
		logging.Bool("permanent", permanent),
		logging.String(logging.FieldEventType, "item_failed"),
	)
	if permanent {
		if err := o.notifier.NotifyItemFailed(ctx, item.SourceName, uploadErr.Error()); err != nil {
			itemLogger.Warn("item failure notification failed", logging.Error(err))
		}
	}
	o.recordItem(s, func(s *session) { s.failed++ })
}

func (o *Orchestrator) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64, logger *slog.Logger) {
	defer wg.Done()
	ticker := time.NewTicker(o.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.store.Touch(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}

// recordItem applies a result mutation plus the shared completion accounting,
// then publishes a snapshot.
func (o *Orchestrator) recordItem(s *session, mutate func(*session)) {
	o.mu.Lock()
	mutate(s)
	s.completed++
	s.current = ""
	snap := s.snapshot()
	o.mu.Unlock()
	o.publish(o.progressSubscribers(), snap)
}

func (o *Orchestrator) finishPass(s *session, logger *slog.Logger) {
	o.mu.Lock()
	s.state = StateIdle
	s.finished = time.Now().UTC()
	s.current = ""
	snap := s.snapshot()
	o.lastProgress = &snap
	o.active = nil
	completeSubs := make([]Subscriber, len(o.completeSubs))
	copy(completeSubs, o.completeSubs)
	o.mu.Unlock()

	logger.Info("sync pass finished",
		logging.Int("total", snap.TotalItems),
		logging.Int("succeeded", snap.Succeeded),
		logging.Int("failed", snap.Failed),
		logging.Int("skipped", snap.Skipped),
		logging.Duration("duration", snap.FinishedAt.Sub(snap.StartedAt)),
		logging.String(logging.FieldEventType, "sync_pass_finished"),
	)
	if snap.TotalItems > 0 {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.notifier.NotifySyncCompleted(notifyCtx, snap.Succeeded, snap.Failed, snap.FinishedAt.Sub(snap.StartedAt)); err != nil {
			logger.Warn("sync completed notification failed", logging.Error(err))
		}
	}

	o.publish(completeSubs, snap)
}

func (o *Orchestrator) progressSubscribers() []Subscriber {
	o.mu.Lock()
	defer o.mu.Unlock()
	subs := make([]Subscriber, len(o.progressSubs))
	copy(subs, o.progressSubs)
	return subs
}

func (o *Orchestrator) publish(subs []Subscriber, snap Progress) {
	for _, fn := range subs {
		fn(snap)
	}
}

func itemLabel(item *queue.Item) string {
	if item.SourceName != "" {
		return item.SourceName
	}
	return fmt.Sprintf("item %d", item.ID)
}

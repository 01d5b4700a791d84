// Package engine is the capture-side facade handed to user interfaces. It
// couples the queue store, the sync orchestrator, and the location provider
// behind the handful of calls a capture screen needs.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"fieldsync/internal/gps"
	"fieldsync/internal/logging"
	"fieldsync/internal/queue"
	"fieldsync/internal/syncer"
)

// CaptureRequest carries the metadata the user entered alongside a captured
// file. Coordinates are not part of the request; the engine asks the location
// provider once at enqueue time.
type CaptureRequest struct {
	ProjectID    string
	ActivityType string
	Location     string
	Notes        string
	Tags         []string
	MediaKind    queue.MediaKind
	SourceName   string
	ContentType  string
}

// Engine is built once at startup with its collaborators passed in
// explicitly. There is no package-level instance.
type Engine struct {
	store    *queue.Store
	orch     *syncer.Orchestrator
	location gps.Provider
	logger   *slog.Logger
}

// New wires an engine. A nil location provider degrades to untagged media;
// a nil orchestrator makes the engine capture-only, which the CLI uses so
// crews can queue media while the daemon is stopped.
func New(store *queue.Store, orch *syncer.Orchestrator, location gps.Provider, logger *slog.Logger) *Engine {
	if location == nil {
		location = gps.Nop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:    store,
		orch:     orch,
		location: location,
		logger:   logger.With(logging.String("component", "engine")),
	}
}

// Enqueue persists a captured file and its metadata. The location provider is
// consulted exactly once; when it has no fix the item is stored without
// coordinates rather than failing or retrying the fix.
func (e *Engine) Enqueue(ctx context.Context, payload io.Reader, req CaptureRequest) (*queue.Item, error) {
	meta := queue.Metadata{
		ProjectID:    req.ProjectID,
		ActivityType: req.ActivityType,
		Location:     req.Location,
		Notes:        req.Notes,
		Tags:         req.Tags,
		MediaKind:    req.MediaKind,
		SourceName:   req.SourceName,
		ContentType:  req.ContentType,
	}

	if fix, err := e.location.Current(ctx); err == nil {
		meta.Latitude = &fix.Latitude
		meta.Longitude = &fix.Longitude
	} else if !errors.Is(err, gps.ErrNoFix) {
		e.logger.Warn("location lookup failed; storing item untagged",
			logging.Error(err),
		)
	}

	item, err := e.store.Enqueue(ctx, payload, meta)
	if err != nil {
		return nil, err
	}
	e.logger.Info("item captured",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("project_id", item.ProjectID),
		logging.String("media_kind", string(item.MediaKind)),
		logging.String(logging.FieldEventType, "item_enqueued"),
	)
	return item, nil
}

// Count reports how many items still await upload (pending plus syncing).
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.store.Count(ctx)
}

// StartSync triggers a pass and returns the live progress snapshot. Calling
// it while a pass runs returns that pass instead of starting another.
func (e *Engine) StartSync() syncer.Progress {
	if e.orch == nil {
		return syncer.Progress{State: syncer.StateIdle}
	}
	return e.orch.StartSync()
}

// IsSyncInProgress reports whether a pass is active.
func (e *Engine) IsSyncInProgress() bool {
	return e.orch != nil && e.orch.IsSyncInProgress()
}

// OnProgress registers a per-item progress callback.
func (e *Engine) OnProgress(fn syncer.Subscriber) {
	if e.orch != nil {
		e.orch.OnProgress(fn)
	}
}

// OnComplete registers a pass-completion callback.
func (e *Engine) OnComplete(fn syncer.Subscriber) {
	if e.orch != nil {
		e.orch.OnComplete(fn)
	}
}

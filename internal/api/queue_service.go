package api

import (
	"context"
	"errors"

	"fieldsync/internal/queue"
)

// QueueService adapts the queue store for API consumers that want view
// structs instead of store models.
type QueueService struct {
	store *queue.Store
}

// NewQueueService wires a queue service over the given store.
func NewQueueService(store *queue.Store) (*QueueService, error) {
	if store == nil {
		return nil, errors.New("queue service requires store")
	}
	return &QueueService{store: store}, nil
}

// Stats returns queue counts keyed by status name.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out, nil
}

// List returns queue items, optionally filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	views := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, FromQueueItem(item))
	}
	return views, nil
}

// Describe returns a single queue item view, or nil when the id is unknown.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	view := FromQueueItem(item)
	return &view, nil
}

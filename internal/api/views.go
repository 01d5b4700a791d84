package api

import (
	"time"

	"fieldsync/internal/queue"
	"fieldsync/internal/syncer"
)

// FromQueueItem converts a store item into its transport representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	view := QueueItem{
		ID:           item.ID,
		SourceName:   item.SourceName,
		ProjectID:    item.ProjectID,
		ActivityType: item.ActivityType,
		Location:     item.Location,
		Notes:        item.Notes,
		MediaKind:    string(item.MediaKind),
		Status:       string(item.Status),
		Attempts:     item.Attempts,
		LastError:    item.LastError,
		RemoteID:     item.RemoteID,
		SizeBytes:    item.SizeBytes,
		Checksum:     item.Checksum,
		ContentType:  item.ContentType,
		CreatedAt:    formatTime(item.CreatedAt),
		UpdatedAt:    formatTime(item.UpdatedAt),
	}
	if len(item.Tags) > 0 {
		view.Tags = append(view.Tags, item.Tags...)
	}
	if item.Latitude != nil {
		lat := *item.Latitude
		view.Latitude = &lat
	}
	if item.Longitude != nil {
		lon := *item.Longitude
		view.Longitude = &lon
	}
	return view
}

// FromProgress converts a sync pass snapshot into its transport
// representation.
func FromProgress(p syncer.Progress, active bool) SyncStatus {
	return SyncStatus{
		SessionID:      p.SessionID,
		State:          string(p.State),
		TotalItems:     p.TotalItems,
		CompletedItems: p.CompletedItems,
		Succeeded:      p.Succeeded,
		Failed:         p.Failed,
		Skipped:        p.Skipped,
		CurrentItem:    p.CurrentItem,
		StartedAt:      formatTime(p.StartedAt),
		FinishedAt:     formatTime(p.FinishedAt),
		Active:         active,
	}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}

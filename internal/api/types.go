// Package api holds the transport-friendly views shared by the IPC layer and
// the CLI renderers.
package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID           int64    `json:"id"`
	SourceName   string   `json:"sourceName"`
	ProjectID    string   `json:"projectId"`
	ActivityType string   `json:"activityType"`
	Location     string   `json:"location,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	MediaKind    string   `json:"mediaKind"`
	Status       string   `json:"status"`
	Attempts     int      `json:"attempts"`
	LastError    string   `json:"lastError,omitempty"`
	RemoteID     string   `json:"remoteId,omitempty"`
	SizeBytes    int64    `json:"sizeBytes"`
	Checksum     string   `json:"checksum,omitempty"`
	ContentType  string   `json:"contentType,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// SyncStatus summarizes a sync pass for API consumers.
type SyncStatus struct {
	SessionID      string `json:"sessionId,omitempty"`
	State          string `json:"state"`
	TotalItems     int    `json:"totalItems"`
	CompletedItems int    `json:"completedItems"`
	Succeeded      int    `json:"succeeded"`
	Failed         int    `json:"failed"`
	Skipped        int    `json:"skipped"`
	CurrentItem    string `json:"currentItem,omitempty"`
	StartedAt      string `json:"startedAt,omitempty"`
	FinishedAt     string `json:"finishedAt,omitempty"`
	Active         bool   `json:"active"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	Online      bool           `json:"online"`
	QueueDBPath string         `json:"queueDbPath"`
	LockPath    string         `json:"lockPath"`
	QueueStats  map[string]int `json:"queueStats"`
	Sync        SyncStatus     `json:"sync"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

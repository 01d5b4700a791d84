package queue

import (
	"strings"
	"time"
)

// Status represents the upload lifecycle of a queued media item.
type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusSyncing,
	StatusSynced,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// MediaKind distinguishes the capture types the field app produces.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total   int
	Pending int
	Syncing int
	Synced  int
	Failed  int
}

// Item represents a captured media item persisted in SQLite.
type Item struct {
	ID           int64
	PayloadPath  string
	ProjectID    string
	ActivityType string
	Location     string
	Notes        string
	Tags         []string
	MediaKind    MediaKind
	Latitude     *float64
	Longitude    *float64
	SourceName   string
	SizeBytes    int64
	Checksum     string
	ContentType  string
	Status       Status
	Attempts     int
	LastError    string
	RemoteID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClaimedAt    *time.Time
	LastHeartbeat *time.Time
}

// Metadata carries the capture context recorded alongside a payload at
// enqueue time.
type Metadata struct {
	ProjectID    string
	ActivityType string
	Location     string
	Notes        string
	Tags         []string
	MediaKind    MediaKind
	Latitude     *float64
	Longitude    *float64
	SourceName   string
	ContentType  string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseMediaKind converts a string into a known MediaKind.
func ParseMediaKind(value string) (MediaKind, bool) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(value))) {
	case MediaPhoto:
		return MediaPhoto, true
	case MediaVideo:
		return MediaVideo, true
	default:
		return "", false
	}
}

// IsTerminal reports whether the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusSynced || s == StatusFailed
}

// IsClaimed reports whether the item is currently held by an upload worker.
func (i Item) IsClaimed() bool {
	return i.Status == StatusSyncing
}

// StaleAt returns the instant this item's claim expires. Items that are not
// claimed never go stale.
func (i Item) StaleAt(staleAfter time.Duration) (time.Time, bool) {
	if i.Status != StatusSyncing {
		return time.Time{}, false
	}
	anchor := i.ClaimedAt
	if i.LastHeartbeat != nil {
		anchor = i.LastHeartbeat
	}
	if anchor == nil {
		return time.Time{}, false
	}
	return anchor.Add(staleAfter), true
}

package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldsync/internal/fileutil"
)

// Enqueue spools payload into the durable payload directory and records a new
// pending item. The payload is fsynced before the row is inserted, so an item
// returned by Enqueue survives a crash. Spool or insert failures are surfaced
// synchronously and leave no partial state behind.
func (s *Store) Enqueue(ctx context.Context, payload io.Reader, meta Metadata) (*Item, error) {
	if payload == nil {
		return nil, errors.New("payload is nil")
	}
	if strings.TrimSpace(meta.ProjectID) == "" {
		return nil, errors.New("project id is required")
	}
	kind, ok := ParseMediaKind(string(meta.MediaKind))
	if !ok {
		return nil, fmt.Errorf("unknown media kind %q", meta.MediaKind)
	}

	ctx = ensureContext(ctx)
	payloadPath := filepath.Join(s.payloadDir, payloadFileName(kind, meta.SourceName))
	spooled, err := fileutil.Spool(payload, payloadPath)
	if err != nil {
		return nil, fmt.Errorf("spool payload: %w", err)
	}

	tagsJSON, err := marshalTags(meta.Tags)
	if err != nil {
		_ = fileutil.RemoveQuiet(payloadPath)
		return nil, err
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            payload_path, project_id, activity_type, location, notes, tags_json,
            media_kind, latitude, longitude, source_name, size_bytes, checksum,
            content_type, status, attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payloadPath,
		strings.TrimSpace(meta.ProjectID),
		nullableString(meta.ActivityType),
		nullableString(meta.Location),
		nullableString(meta.Notes),
		nullableString(tagsJSON),
		kind,
		nullableFloat(meta.Latitude),
		nullableFloat(meta.Longitude),
		nullableString(meta.SourceName),
		spooled.Size,
		nullableString(spooled.SHA256),
		nullableString(meta.ContentType),
		StatusPending,
		0,
		timestamp,
		timestamp,
	)
	if err != nil {
		_ = fileutil.RemoveQuiet(payloadPath)
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		_ = fileutil.RemoveQuiet(payloadPath)
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListEligible returns items an upload worker may claim, oldest capture first:
// pending items plus syncing items whose claim has gone stale relative to now.
func (s *Store) ListEligible(ctx context.Context, now time.Time, staleAfter time.Duration) ([]*Item, error) {
	ctx = ensureContext(ctx)
	cutoff := now.UTC().Add(-staleAfter).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items
         WHERE status = ?
            OR (status = ? AND COALESCE(last_heartbeat, claimed_at) IS NOT NULL
                AND COALESCE(last_heartbeat, claimed_at) < ?)
         ORDER BY created_at, id`,
		StatusPending,
		StatusSyncing,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list eligible items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Count returns the number of items not yet in a terminal state.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM queue_items WHERE status IN (?, ?)`,
		StatusPending,
		StatusSyncing,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count queue items: %w", err)
	}
	return count, nil
}

const itemColumns = "id, payload_path, project_id, activity_type, location, notes, tags_json, media_kind, latitude, longitude, source_name, size_bytes, checksum, content_type, status, attempts, last_error, remote_id, created_at, updated_at, claimed_at, last_heartbeat"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		payloadPath      string
		projectID        string
		activityType     sql.NullString
		location         sql.NullString
		notes            sql.NullString
		tagsJSON         sql.NullString
		mediaKind        string
		latitude         sql.NullFloat64
		longitude        sql.NullFloat64
		sourceName       sql.NullString
		sizeBytes        sql.NullInt64
		checksum         sql.NullString
		contentType      sql.NullString
		statusStr        string
		attempts         sql.NullInt64
		lastError        sql.NullString
		remoteID         sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		claimedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&payloadPath,
		&projectID,
		&activityType,
		&location,
		&notes,
		&tagsJSON,
		&mediaKind,
		&latitude,
		&longitude,
		&sourceName,
		&sizeBytes,
		&checksum,
		&contentType,
		&statusStr,
		&attempts,
		&lastError,
		&remoteID,
		&createdRaw,
		&updatedRaw,
		&claimedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:           id,
		PayloadPath:  payloadPath,
		ProjectID:    projectID,
		ActivityType: activityType.String,
		Location:     location.String,
		Notes:        notes.String,
		MediaKind:    MediaKind(mediaKind),
		SourceName:   sourceName.String,
		SizeBytes:    sizeBytes.Int64,
		Checksum:     checksum.String,
		ContentType:  contentType.String,
		Status:       Status(statusStr),
		Attempts:     int(attempts.Int64),
		LastError:    lastError.String,
		RemoteID:     remoteID.String,
	}
	if latitude.Valid {
		v := latitude.Float64
		item.Latitude = &v
	}
	if longitude.Valid {
		v := longitude.Float64
		item.Longitude = &v
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &item.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for item %d: %w", id, err)
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if claimedRaw.Valid {
		if claimed, err := parseTimeString(claimedRaw.String); err == nil {
			item.ClaimedAt = &claimed
		}
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func marshalTags(tags []string) (string, error) {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return "", nil
	}
	data, err := json.Marshal(cleaned)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

func payloadFileName(kind MediaKind, sourceName string) string {
	ext := strings.ToLower(filepath.Ext(sourceName))
	if ext == "" {
		switch kind {
		case MediaPhoto:
			ext = ".jpg"
		case MediaVideo:
			ext = ".mp4"
		}
	}
	return uuid.NewString() + ext
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

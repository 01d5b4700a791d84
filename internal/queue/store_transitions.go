package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TryClaim atomically moves an item into syncing on behalf of an upload
// worker. It succeeds when the item is pending, or when it is syncing but its
// claim went stale relative to staleAfter. Exactly one caller wins a given
// item; everyone else observes false.
func (s *Store) TryClaim(ctx context.Context, id int64, now time.Time, staleAfter time.Duration) (bool, error) {
	timestamp := now.UTC().Format(time.RFC3339Nano)
	cutoff := now.UTC().Add(-staleAfter).Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, claimed_at = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?
           AND (status = ?
                OR (status = ? AND COALESCE(last_heartbeat, claimed_at) IS NOT NULL
                    AND COALESCE(last_heartbeat, claimed_at) < ?))`,
		StatusSyncing,
		timestamp,
		timestamp,
		timestamp,
		id,
		StatusPending,
		StatusSyncing,
		cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("claim item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Touch refreshes the heartbeat timestamp for an in-flight item so its claim
// stays fresh during long uploads.
func (s *Store) Touch(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusSyncing,
	); err != nil {
		return fmt.Errorf("touch item %d: %w", id, err)
	}
	return nil
}

// MarkSynced records a successful upload: the item becomes synced, the
// server-assigned identifier is stored, and the claim is released.
func (s *Store) MarkSynced(ctx context.Context, id int64, remoteID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, remote_id = ?, last_error = NULL,
             claimed_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusSynced,
		nullableString(strings.TrimSpace(remoteID)),
		now,
		id,
		StatusSyncing,
	)
	if err != nil {
		return fmt.Errorf("mark item %d synced: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark item %d synced: item is not claimed", id)
	}
	return nil
}

// MarkFailed records an upload failure for a claimed item. Transient failures
// increment the attempt counter and return the item to pending until the
// attempt ceiling is reached; permanent failures and exhausted items move to
// failed. The claim is released either way.
func (s *Store) MarkFailed(ctx context.Context, id int64, cause string, permanent bool) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("mark item %d failed: item not found", id)
	}

	attempts := item.Attempts + 1
	next := StatusPending
	if permanent || attempts >= s.maxAttempts {
		next = StatusFailed
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, attempts = ?, last_error = ?,
             claimed_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		next,
		attempts,
		nullableString(strings.TrimSpace(cause)),
		now,
		id,
		StatusSyncing,
	)
	if err != nil {
		return fmt.Errorf("mark item %d failed: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark item %d failed: item is not claimed", id)
	}
	return nil
}

// ReleaseClaim returns a syncing item to pending without charging an attempt.
// Used when a sync pass drains on shutdown or a network drop interrupts a
// worker before the upload started.
func (s *Store) ReleaseClaim(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, claimed_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		now,
		id,
		StatusSyncing,
	); err != nil {
		return fmt.Errorf("release claim on item %d: %w", id, err)
	}
	return nil
}

// ReclaimStale returns syncing items with expired heartbeats back to pending.
// Run at daemon startup so items orphaned by a crash become eligible again.
func (s *Store) ReclaimStale(ctx context.Context, now time.Time, staleAfter time.Duration) (int64, error) {
	timestamp := now.UTC().Format(time.RFC3339Nano)
	cutoff := now.UTC().Add(-staleAfter).Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, claimed_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND COALESCE(last_heartbeat, claimed_at) IS NOT NULL
           AND COALESCE(last_heartbeat, claimed_at) < ?`,
		StatusPending,
		timestamp,
		StatusSyncing,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for another round of upload
// attempts. With no ids every failed item is retried. Attempt counters reset
// so the retried items get a full allowance.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
            SET status = ?, attempts = 0, last_error = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_items
        SET status = ?, attempts = 0, last_error = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

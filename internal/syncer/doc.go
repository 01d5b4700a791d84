// Package syncer coordinates upload passes over the durable queue.
//
// The Orchestrator runs at most one sync pass at a time. A pass scans the
// queue for eligible items, claims each through the store's TryClaim guard,
// and dispatches claimed items to a bounded worker pool. Passes are triggered
// manually, by a connectivity restore, or by a periodic timer while online.
// Subscribers receive progress snapshots as items finish and exactly one
// completion event per pass, including passes that found nothing to upload.
//
// Retry pacing falls out of the pass structure: a transiently failed item
// returns to pending and is simply picked up by a later pass, so there is no
// per-item backoff timer to maintain.
package syncer

// Package mediaserver talks to the remote media service that queued captures
// are uploaded to.
//
// The Client performs one multipart upload per item and classifies failures
// for the sync orchestrator: network errors, timeouts, and 5xx responses are
// transient and will be retried; 4xx responses mean the server rejected the
// item and retrying the same bytes cannot succeed. The client never touches
// the queue store; recording outcomes is the orchestrator's job.
package mediaserver

// Package services holds the error taxonomy and context plumbing shared by
// the upload client and the sync orchestrator.
//
// Upload failures are tagged with sentinel markers (transient, validation,
// timeout, configuration) so the orchestrator alone decides whether an item
// retries on a later pass or is parked permanently. Context helpers carry
// item and session identifiers into structured logs.
package services

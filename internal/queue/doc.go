// Package queue persists captured media items in SQLite and exposes helpers
// for driving their upload lifecycle.
//
// The Store manages database connections, schema initialization, payload
// spooling, stats queries, heartbeat tracking, stale-claim recovery, and the
// status transitions the sync orchestrator relies on. Claiming an item for
// upload goes through TryClaim, a single guarded UPDATE, so concurrent workers
// and overlapping daemon instances can never sync the same item twice.
//
// The database is the device-local source of truth for capture durability: an
// item accepted by Enqueue survives process crashes and power loss until it is
// either uploaded or explicitly removed. Schema changes bump the version in
// schema.go; users clear the database to adopt the new schema.
package queue

// Package main hosts the fieldsync CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon, with a direct-store fallback for queue inspection when
// the daemon is not running. Capture (`add`) always goes through the store so
// field crews can keep queueing media with the daemon stopped.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main

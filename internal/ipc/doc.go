// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between queue models and wire representations. The server embeds the daemon;
// the client fails fast with a dial timeout when the daemon is not running so
// CLI commands can fall back to direct store access.
package ipc

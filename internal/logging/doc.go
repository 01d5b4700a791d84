// Package logging builds the slog loggers used across fieldsync.
//
// Two output formats are supported: a compact console format for
// interactive use and JSON for log shippers. The daemon writes to stdout
// and a log file under the configured log directory. Helper constructors
// standardize attribute keys so components, item identifiers, and session
// identifiers are queryable across the whole codebase.
package logging

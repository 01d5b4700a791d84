// Package config loads, normalizes, and validates fieldsync configuration.
//
// Configuration lives in a single TOML file (default
// ~/.config/fieldsync/config.toml). Load applies defaults for missing
// values, expands ~ in paths, and rejects unusable combinations up front so
// the daemon never starts with a half-valid setup. Tunables the sync engine
// depends on (worker count, attempts ceiling, stale claim timeout) are
// explicit here rather than buried as constants.
package config

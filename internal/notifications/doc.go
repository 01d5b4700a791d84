// Package notifications pushes sync lifecycle events to the crew's phones
// via ntfy.
//
// Every notification is best effort: failures are logged by callers and never
// interrupt queue processing. When no ntfy topic is configured the service
// degrades to a noop implementation.
package notifications

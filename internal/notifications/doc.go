// Package notifications delivers pipeline milestones via ntfy.
//
// When no topic is configured the service degrades to a no-op, so callers
// notify unconditionally. Publish events and error alerts are gated
// separately in configuration.
package notifications

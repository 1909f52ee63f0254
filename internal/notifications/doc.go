// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Each
// event family can be switched off separately, and queue summaries are only
// sent once enough items went through.
package notifications

// Package queue persists content items in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking and stuck-item recovery. Each item carries
// the five per-stage generation statuses alongside the derived scheduling
// status that workers poll on, plus the artifacts each stage produced.
// The same database also keeps small pieces of daemon state: relay
// settings saved through the API, OAuth grants for direct posting and
// pending OAuth state values.
//
// Schema changes bump the version in schema.go; additive changes go in
// migrations/ so existing databases keep working.
package queue

// Package api defines the transport types and the services shared by the
// HTTP API, the IPC server and the CLI. It translates queue models into
// JSON-friendly views that clients can render without importing internal
// packages.
//
// # Key Types
//
// ContentItem: transport representation of a content item with its
// per-stage status map, generated artifacts, progress and failure details.
//
// WorkflowStatus: daemon running state, queue stats, stage health and last
// item.
//
// DaemonStatus: aggregated runtime information including dependencies and
// relay readiness.
//
// # Services
//
// ContentService wraps the queue store with the user-facing operations:
// create, regenerate one stage, resume, publish, edit text, remove and
// clear. Every mutation is broadcast through an events.Publisher.
//
// PublishingService exposes relay configuration and ad-hoc posting.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for browser consumers. Stage statuses are
// exposed as a map keyed by stage name so clients never depend on stage
// order. Timestamps use RFC3339 with milliseconds.
package api

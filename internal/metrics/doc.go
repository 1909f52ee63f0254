// Package metrics exposes the Prometheus collectors the daemon serves on
// /metrics: stage runs and durations, relay posts, queue depth and event
// stream subscribers.
//
// Collectors are registered on a private registry rather than the global
// default so tests and one-shot CLI runs can build as many as they like.
package metrics

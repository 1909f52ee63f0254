// Package daemon coordinates the long-running contentflow process.
//
// It wires configuration, queue storage, the workflow manager, the relay
// registry and the event hub into a single lifecycle with flock-based locking
// to prevent multiple instances. The daemon owns the HTTP API (a chi router
// with bearer-token auth, websocket change events, Prometheus metrics and the
// log stream) and exposes the same item operations to the IPC server through
// the api services.
//
// Keep orchestration logic here: stage work lives in the stage packages while
// the daemon focuses on startup, shutdown, and high level coordination.
package daemon

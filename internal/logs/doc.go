// Package logs reads daemon logs for the CLI and the IPC LogTail call.
//
// Tail reads the plain log file with bounded memory, supports negative
// offsets for "last N lines" reads and polls for new lines in follow mode.
// StreamClient reads structured events from the HTTP /api/logs endpoint.
package logs

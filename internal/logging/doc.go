// Package logging assembles structured slog loggers and formatting helpers used
// across contentflow.
//
// It owns the console/JSON handlers, level and output plumbing, a bounded
// in-memory stream of recent log events for the API, and context helpers so
// stage code tags log lines with content item IDs, stages, lanes, platforms,
// and correlation IDs automatically. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging

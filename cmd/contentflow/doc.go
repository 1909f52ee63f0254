// Package main hosts the contentflow CLI entrypoint and command graph.
//
// Commands either talk to the running daemon over its Unix socket or, for
// queue operations, open the SQLite database directly when no daemon is
// listening. The hidden daemon command runs the long-lived process itself.
package main

// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Every item operation delegates to the same api services the HTTP server
// uses, so both surfaces apply identical validation. Service errors cross the
// socket as "message [code]" strings.
package ipc

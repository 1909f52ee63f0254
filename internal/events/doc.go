// Package events fans content item updates out to websocket subscribers.
//
// The workflow manager and the API publish an Event whenever an item is
// created, changes stage status, reports progress or is removed. The Hub
// keeps one buffered send queue per connected client and drops slow
// clients instead of blocking publishers. Clients may narrow the stream to
// specific items by sending a subscribe message.
package events

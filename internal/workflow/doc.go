// Package workflow advances content items through the generation stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into the registered stage handlers (text, image, audio, video,
// socialPost) while capturing progress and failure metadata. A completed
// stage begins the next one automatically unless the item was requested as
// a single-stage regenerate, in which case it pauses for the user. A failed
// stage halts the item; nothing downstream runs until the user regenerates.
//
// The workflow runs two independent lanes: generate (text, image, audio,
// socialPost) and render (video). Each lane claims one item at a time, so a
// slow ffmpeg render for item A does not hold up drafting text for item B.
//
// Every persisted change is published to the events hub and recorded in
// the Prometheus collectors; failures, publish approvals, successful posts
// and queue completion are announced through ntfy.
package workflow

// Package ffmpeg renders the short preview video for a post: a still image
// behind a darkened overlay with the post text, platform label and branding
// line burned in, optionally carrying the narration track.
//
// Overlay text goes through drawtext textfile= inputs written next to the
// output so post text never needs filtergraph escaping. Progress is parsed
// from the key=value stream ffmpeg emits with -progress pipe:1.
package ffmpeg

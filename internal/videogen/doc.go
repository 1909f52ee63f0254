// Package videogen implements the video stage: a short single-frame preview
// rendered with ffmpeg from the item's image, text and narration.
package videogen

// Package narration implements the audio stage: it reads the post text
// aloud with the local speech engine and records how long the narration
// runs so the video stage can size the preview to it.
package narration

// Package speech synthesizes narration with a local text-to-speech engine
// (espeak-ng by default) and estimates how long the narration runs.
package speech

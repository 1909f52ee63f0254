// Package textgen implements the text stage: it drafts a platform-specific
// post for an item's topic with a chat completion model and extracts the
// hashtags the draft contains.
package textgen

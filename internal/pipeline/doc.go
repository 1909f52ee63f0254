// Package pipeline models the content generation state machine.
//
// A content item moves through five stages in a fixed order: text, image,
// audio, video and socialPost. Each stage carries one of four statuses
// (idle, generating, success, error). A stage may only start once its
// predecessor succeeded, an error halts the chain, and a manual regenerate
// re-runs a single stage without resuming anything downstream. The chain is
// finished when socialPost reaches success.
//
// State values are plain data; the queue package persists them and the
// workflow manager drives them. All transition methods validate their
// preconditions and return ErrInvalidTransition (wrapped in a
// TransitionError) instead of mutating an inconsistent state.
package pipeline

package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition marks a rejected state change.
var ErrInvalidTransition = errors.New("invalid stage transition")

// TransitionError describes why a transition was rejected.
type TransitionError struct {
	Op     string
	Stage  Stage
	Status Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s %s (status %s): %s", e.Op, e.Stage, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Stage, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// State holds the status of every stage.
type State struct {
	statuses [5]Status
}

// NewState returns a state with every stage idle.
func NewState() State {
	var s State
	for i := range s.statuses {
		s.statuses[i] = StatusIdle
	}
	return s
}

// StateFrom rebuilds a state from persisted values. Unknown or empty values
// are treated as idle.
func StateFrom(values map[Stage]Status) State {
	s := NewState()
	for stage, status := range values {
		idx := stage.Index()
		if idx < 0 {
			continue
		}
		if parsed, ok := ParseStatus(string(status)); ok {
			s.statuses[idx] = parsed
		}
	}
	return s
}

// Status returns the status for a stage. Unknown stages report idle.
func (s State) Status(stage Stage) Status {
	idx := stage.Index()
	if idx < 0 {
		return StatusIdle
	}
	if s.statuses[idx] == "" {
		return StatusIdle
	}
	return s.statuses[idx]
}

// Map returns a copy of the per-stage statuses.
func (s State) Map() map[Stage]Status {
	out := make(map[Stage]Status, len(orderedStages))
	for _, stage := range orderedStages {
		out[stage] = s.Status(stage)
	}
	return out
}

// Start resets the chain for a fresh run: text generating, every other
// stage idle.
func (s *State) Start() {
	*s = NewState()
	s.statuses[StageText.Index()] = StatusGenerating
}

// Begin moves a stage into generating as part of the automatic chain. A
// stage that already ran is simply run again.
func (s *State) Begin(stage Stage) error {
	if err := s.checkStartable("begin", stage); err != nil {
		return err
	}
	s.statuses[stage.Index()] = StatusGenerating
	return nil
}

// Regenerate re-enters generating for a single stage. Downstream stages keep
// their current statuses.
func (s *State) Regenerate(stage Stage) error {
	if err := s.checkStartable("regenerate", stage); err != nil {
		return err
	}
	s.statuses[stage.Index()] = StatusGenerating
	return nil
}

// Complete marks a generating stage as successful.
func (s *State) Complete(stage Stage) error {
	if !stage.Valid() {
		return &TransitionError{Op: "complete", Stage: stage, Reason: "unknown stage"}
	}
	if current := s.Status(stage); current != StatusGenerating {
		return &TransitionError{Op: "complete", Stage: stage, Status: current, Reason: "stage is not generating"}
	}
	s.statuses[stage.Index()] = StatusSuccess
	return nil
}

// Fail marks a generating stage as errored, halting the chain.
func (s *State) Fail(stage Stage) error {
	if !stage.Valid() {
		return &TransitionError{Op: "fail", Stage: stage, Reason: "unknown stage"}
	}
	if current := s.Status(stage); current != StatusGenerating {
		return &TransitionError{Op: "fail", Stage: stage, Status: current, Reason: "stage is not generating"}
	}
	s.statuses[stage.Index()] = StatusError
	return nil
}

// Active returns the stage currently generating.
func (s State) Active() (Stage, bool) {
	for i, stage := range orderedStages {
		if s.statuses[i] == StatusGenerating {
			return stage, true
		}
	}
	return "", false
}

// Failed returns the stage currently in error.
func (s State) Failed() (Stage, bool) {
	for i, stage := range orderedStages {
		if s.statuses[i] == StatusError {
			return stage, true
		}
	}
	return "", false
}

// Next returns the stage the automatic chain should start next: the first
// idle stage whose predecessor succeeded. Nothing is returned while a stage
// is generating or in error.
func (s State) Next() (Stage, bool) {
	if _, busy := s.Active(); busy {
		return "", false
	}
	if _, failed := s.Failed(); failed {
		return "", false
	}
	for i, stage := range orderedStages {
		status := s.statuses[i]
		if status == StatusSuccess {
			continue
		}
		if status != StatusIdle {
			return "", false
		}
		if prev, ok := stage.Previous(); ok && s.Status(prev) != StatusSuccess {
			return "", false
		}
		return stage, true
	}
	return "", false
}

// Terminal reports whether the social post succeeded.
func (s State) Terminal() bool {
	return s.Status(StageSocialPost) == StatusSuccess
}

// Completed returns how many stages are in success.
func (s State) Completed() int {
	count := 0
	for _, status := range s.statuses {
		if status == StatusSuccess {
			count++
		}
	}
	return count
}

// CurrentStep mirrors the 1-based step indicator shown to users: the index
// of the active, failed or next stage, or len(stages)+1 when finished.
func (s State) CurrentStep() int {
	if stage, ok := s.Active(); ok {
		return stage.Index() + 1
	}
	if stage, ok := s.Failed(); ok {
		return stage.Index() + 1
	}
	if stage, ok := s.Next(); ok {
		return stage.Index() + 1
	}
	if s.Terminal() {
		return len(orderedStages) + 1
	}
	return 0
}

func (s State) checkStartable(op string, stage Stage) error {
	if !stage.Valid() {
		return &TransitionError{Op: op, Stage: stage, Reason: "unknown stage"}
	}
	if active, busy := s.Active(); busy {
		return &TransitionError{Op: op, Stage: stage, Status: s.Status(stage), Reason: fmt.Sprintf("stage %s is already generating", active)}
	}
	for _, upstream := range orderedStages[:stage.Index()] {
		if s.Status(upstream) != StatusSuccess {
			return &TransitionError{Op: op, Stage: stage, Status: s.Status(stage), Reason: fmt.Sprintf("%s has not succeeded", upstream)}
		}
	}
	return nil
}

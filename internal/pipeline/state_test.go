package pipeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func statuses(s State) []Status {
	out := make([]Status, 0, len(orderedStages))
	for _, stage := range Stages() {
		out = append(out, s.Status(stage))
	}
	return out
}

func TestNewStateAllIdle(t *testing.T) {
	s := NewState()
	want := []Status{StatusIdle, StatusIdle, StatusIdle, StatusIdle, StatusIdle}
	if diff := cmp.Diff(want, statuses(s)); diff != "" {
		t.Fatalf("unexpected statuses (-want +got):\n%s", diff)
	}
	if next, ok := s.Next(); !ok || next != StageText {
		t.Fatalf("expected text to be next, got %q %v", next, ok)
	}
}

func TestFullChainReachesTerminal(t *testing.T) {
	s := NewState()
	s.Start()
	for _, stage := range Stages() {
		if stage != StageText {
			next, ok := s.Next()
			if !ok || next != stage {
				t.Fatalf("expected next %s, got %q %v", stage, next, ok)
			}
			if err := s.Begin(stage); err != nil {
				t.Fatalf("begin %s: %v", stage, err)
			}
		}
		if active, ok := s.Active(); !ok || active != stage {
			t.Fatalf("expected %s active, got %q", stage, active)
		}
		if err := s.Complete(stage); err != nil {
			t.Fatalf("complete %s: %v", stage, err)
		}
	}
	if !s.Terminal() {
		t.Fatal("expected terminal state")
	}
	if _, ok := s.Next(); ok {
		t.Fatal("terminal state should have no next stage")
	}
	if got := s.CurrentStep(); got != 6 {
		t.Fatalf("expected step 6, got %d", got)
	}
}

func TestStartDiscardsPreviousResults(t *testing.T) {
	s := StateFrom(map[Stage]Status{
		StageText:  StatusSuccess,
		StageImage: StatusSuccess,
		StageAudio: StatusError,
	})
	s.Start()
	want := []Status{StatusGenerating, StatusIdle, StatusIdle, StatusIdle, StatusIdle}
	if diff := cmp.Diff(want, statuses(s)); diff != "" {
		t.Fatalf("unexpected statuses (-want +got):\n%s", diff)
	}
}

func TestFailHaltsChain(t *testing.T) {
	s := NewState()
	s.Start()
	if err := s.Complete(StageText); err != nil {
		t.Fatal(err)
	}
	if err := s.Begin(StageImage); err != nil {
		t.Fatal(err)
	}
	if err := s.Fail(StageImage); err != nil {
		t.Fatal(err)
	}
	if failed, ok := s.Failed(); !ok || failed != StageImage {
		t.Fatalf("expected image failed, got %q", failed)
	}
	if _, ok := s.Next(); ok {
		t.Fatal("failed state must not offer a next stage")
	}
	if err := s.Begin(StageAudio); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestBeginRequiresSuccessfulPredecessor(t *testing.T) {
	s := NewState()
	err := s.Begin(StageVideo)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) || te.Stage != StageVideo {
		t.Fatalf("expected transition error for video, got %#v", err)
	}
}

func TestOnlyOneStageGenerating(t *testing.T) {
	s := NewState()
	s.Start()
	if err := s.Regenerate(StageText); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected rejection while text generating, got %v", err)
	}
}

func TestRegenerateLeavesDownstreamUntouched(t *testing.T) {
	s := StateFrom(map[Stage]Status{
		StageText:       StatusSuccess,
		StageImage:      StatusSuccess,
		StageAudio:      StatusSuccess,
		StageVideo:      StatusError,
		StageSocialPost: StatusIdle,
	})
	if err := s.Regenerate(StageImage); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if err := s.Complete(StageImage); err != nil {
		t.Fatalf("complete: %v", err)
	}
	want := []Status{StatusSuccess, StatusSuccess, StatusSuccess, StatusError, StatusIdle}
	if diff := cmp.Diff(want, statuses(s)); diff != "" {
		t.Fatalf("unexpected statuses (-want +got):\n%s", diff)
	}
}

func TestRegenerateFailedStage(t *testing.T) {
	s := StateFrom(map[Stage]Status{
		StageText:  StatusSuccess,
		StageImage: StatusError,
	})
	if err := s.Regenerate(StageImage); err != nil {
		t.Fatalf("regenerate failed stage: %v", err)
	}
	if active, _ := s.Active(); active != StageImage {
		t.Fatalf("expected image active, got %q", active)
	}
}

func TestCompleteRequiresGenerating(t *testing.T) {
	s := NewState()
	if err := s.Complete(StageText); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := s.Fail(StageText); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestParseStage(t *testing.T) {
	cases := map[string]Stage{
		"text":        StageText,
		" IMAGE ":     StageImage,
		"narration":   StageAudio,
		"video":       StageVideo,
		"socialPost":  StageSocialPost,
		"social_post": StageSocialPost,
	}
	for input, want := range cases {
		got, ok := ParseStage(input)
		if !ok || got != want {
			t.Fatalf("ParseStage(%q) = %q %v, want %q", input, got, ok, want)
		}
	}
	if _, ok := ParseStage("thumbnail"); ok {
		t.Fatal("expected unknown stage to be rejected")
	}
}

func TestStageNeighbours(t *testing.T) {
	if _, ok := StageText.Previous(); ok {
		t.Fatal("text has no predecessor")
	}
	if prev, _ := StageAudio.Previous(); prev != StageImage {
		t.Fatalf("expected image before audio, got %q", prev)
	}
	if next, _ := StageVideo.Following(); next != StageSocialPost {
		t.Fatalf("expected socialPost after video, got %q", next)
	}
	if _, ok := StageSocialPost.Following(); ok {
		t.Fatal("socialPost is last")
	}
}

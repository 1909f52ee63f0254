package logging

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProgressSamplerAllow(t *testing.T) {
	s := NewProgressSampler(10)
	var logged []float64
	for _, p := range []float64{-1, 0, 3.5, 9.9, 10, 12, 27, 28, 55, 99, 100, 100} {
		if s.Allow(p) {
			logged = append(logged, p)
		}
	}
	want := []float64{0, 10, 27, 55, 99, 100}
	if diff := cmp.Diff(want, logged); diff != "" {
		t.Fatalf("sampled progress mismatch (-want +got):\n%s", diff)
	}
}

func TestProgressSamplerDefaultsAndNil(t *testing.T) {
	if got := NewProgressSampler(0).step; got != 5 {
		t.Fatalf("default step = %v, want 5", got)
	}
	var s *ProgressSampler
	if !s.Allow(40) || s.Allow(-1) {
		t.Fatal("nil sampler should allow every known percent")
	}
}

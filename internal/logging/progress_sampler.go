package logging

// ProgressSampler thins out render progress logs to one record per step of
// percent completion. Item progress is still persisted on every update; only
// the log stream is sampled.
type ProgressSampler struct {
	step float64
	next float64
}

// NewProgressSampler returns a sampler that lets a value through whenever it
// reaches the next multiple of step. A non-positive step defaults to 5.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step}
}

// Allow reports whether percent should be logged. Unknown progress (negative)
// is never logged; 100 always is, once.
func (s *ProgressSampler) Allow(percent float64) bool {
	if s == nil {
		return percent >= 0
	}
	if percent < 0 || percent < s.next {
		return false
	}
	if percent >= 100 {
		s.next = 100 + s.step
		return true
	}
	s.next = (float64(int(percent/s.step)) + 1) * s.step
	return true
}

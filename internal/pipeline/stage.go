package pipeline

import "strings"

// Stage identifies one step of the content pipeline.
type Stage string

const (
	StageText       Stage = "text"
	StageImage      Stage = "image"
	StageAudio      Stage = "audio"
	StageVideo      Stage = "video"
	StageSocialPost Stage = "socialPost"
)

var orderedStages = []Stage{
	StageText,
	StageImage,
	StageAudio,
	StageVideo,
	StageSocialPost,
}

// Stages returns the stages in execution order.
func Stages() []Stage {
	cp := make([]Stage, len(orderedStages))
	copy(cp, orderedStages)
	return cp
}

// ParseStage converts user input into a known stage. Matching ignores case
// and accepts "social", "social_post" and "post" for socialPost.
func ParseStage(value string) (Stage, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "text":
		return StageText, true
	case "image":
		return StageImage, true
	case "audio", "speech", "narration":
		return StageAudio, true
	case "video":
		return StageVideo, true
	case "socialpost", "social_post", "social", "post":
		return StageSocialPost, true
	default:
		return "", false
	}
}

// Index returns the position of the stage in the pipeline, or -1.
func (s Stage) Index() int {
	for i, stage := range orderedStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Previous returns the stage that must succeed before s can start.
func (s Stage) Previous() (Stage, bool) {
	idx := s.Index()
	if idx <= 0 {
		return "", false
	}
	return orderedStages[idx-1], true
}

// Following returns the stage after s.
func (s Stage) Following() (Stage, bool) {
	idx := s.Index()
	if idx < 0 || idx >= len(orderedStages)-1 {
		return "", false
	}
	return orderedStages[idx+1], true
}

// Label returns a human-friendly stage name.
func (s Stage) Label() string {
	switch s {
	case StageText:
		return "Text"
	case StageImage:
		return "Image"
	case StageAudio:
		return "Audio"
	case StageVideo:
		return "Video"
	case StageSocialPost:
		return "Social Post"
	default:
		return string(s)
	}
}

// Status is the per-stage lifecycle value.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusGenerating Status = "generating"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusIdle:
		return StatusIdle, true
	case StatusGenerating:
		return StatusGenerating, true
	case StatusSuccess:
		return StatusSuccess, true
	case StatusError:
		return StatusError, true
	default:
		return "", false
	}
}

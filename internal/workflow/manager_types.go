package workflow

import (
	"log/slog"

	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/stage"
)

// StageSet bundles the concrete handlers the manager orchestrates.
type StageSet struct {
	Text    stage.Handler
	Image   stage.Handler
	Audio   stage.Handler
	Video   stage.Handler
	Publish stage.Handler
}

func (s StageSet) handlerFor(stg pipeline.Stage) stage.Handler {
	switch stg {
	case pipeline.StageText:
		return s.Text
	case pipeline.StageImage:
		return s.Image
	case pipeline.StageAudio:
		return s.Audio
	case pipeline.StageVideo:
		return s.Video
	case pipeline.StageSocialPost:
		return s.Publish
	default:
		return nil
	}
}

type pipelineStage struct {
	stage   pipeline.Stage
	handler stage.Handler
}

func (p pipelineStage) name() string {
	return string(p.stage)
}

type laneState struct {
	kind    queue.ProcessingLane
	stages  []pipelineStage
	byStage map[pipeline.Stage]pipelineStage
	logger  *slog.Logger
	// wake holds at most one pending nudge from Manager.Wake.
	wake chan struct{}
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.byStage = make(map[pipeline.Stage]pipelineStage, len(l.stages))
	for _, stg := range l.stages {
		l.byStage[stg.stage] = stg
	}
}

func (l *laneState) stageNames() []pipeline.Stage {
	out := make([]pipeline.Stage, 0, len(l.stages))
	for _, stg := range l.stages {
		out = append(out, stg.stage)
	}
	return out
}

func (l *laneState) stageFor(stg pipeline.Stage) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	found, ok := l.byStage[stg]
	return found, ok
}

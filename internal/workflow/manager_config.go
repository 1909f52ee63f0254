package workflow

import (
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
)

// ConfigureStages registers the concrete stage handlers the workflow will
// run. A stage without a handler is still claimed by its lane and fails
// with a configuration error, so items never wait forever on it.
func (m *Manager) ConfigureStages(set StageSet) {
	lanes := map[queue.ProcessingLane]*laneState{
		queue.LaneGenerate: {kind: queue.LaneGenerate, wake: make(chan struct{}, 1)},
		queue.LaneRender:   {kind: queue.LaneRender, wake: make(chan struct{}, 1)},
	}
	for _, stg := range pipeline.Stages() {
		lane := lanes[queue.LaneForStage(stg)]
		lane.stages = append(lane.stages, pipelineStage{stage: stg, handler: set.handlerFor(stg)})
	}

	order := []queue.ProcessingLane{queue.LaneGenerate, queue.LaneRender}
	for _, kind := range order {
		lanes[kind].finalize()
	}
	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}

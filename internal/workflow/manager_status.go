package workflow

import (
	"context"

	"contentflow/internal/logging"
	"contentflow/internal/queue"
	"contentflow/internal/stage"
)

// StatusSummary is the workflow part of daemon status.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status reports queue counts, the last processed item and the health of
// every configured stage handler.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running, LastItem: cloneItem(m.lastItem)}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	var configured []pipelineStage
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			configured = append(configured, lane.stages...)
		}
	}
	m.mu.RUnlock()

	// Health checks may hit the network; run them outside the lock.
	summary.StageHealth = make(map[string]stage.Health, len(configured))
	for _, stg := range configured {
		summary.StageHealth[stg.name()] = stg.health(ctx)
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	return summary
}

func (p pipelineStage) health(ctx context.Context) stage.Health {
	if p.handler == nil {
		return stage.Unhealthy(p.name(), "handler not configured")
	}
	return p.handler.HealthCheck(ctx)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	m.lastItem = cloneItem(item)
	m.mu.Unlock()
}

func cloneItem(item *queue.Item) *queue.Item {
	if item == nil {
		return nil
	}
	dup := *item
	return &dup
}

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"contentflow/internal/logging"
)

// Start launches one goroutine per configured lane plus the stale-claim
// reclaimer.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	var lanes []*laneState
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil && len(lane.stages) > 0 {
			lane.logger = m.laneLogger(lane)
			lanes = append(lanes, lane)
		}
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(len(lanes) + 1)
	m.mu.Unlock()

	m.runPreflightChecks(runCtx)

	go m.runReclaimer(runCtx)
	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Wake nudges idle lanes to look for work now instead of at the next poll.
// It never blocks.
func (m *Manager) Wake() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, lane := range m.lanes {
		select {
		case lane.wake <- struct{}{}:
		default:
		}
	}
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger

	for ctx.Err() == nil {
		item, err := m.store.NextRunnable(ctx, lane.stageNames()...)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			m.reportFetchError(logger, err)
			m.idle(ctx, lane)
		case item == nil:
			m.idle(ctx, lane)
		default:
			if err := m.processItem(ctx, lane, logger, item); errors.Is(err, context.Canceled) {
				return
			}
			// The next stage may belong to another lane.
			m.Wake()
		}
	}
}

func (m *Manager) reportFetchError(logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next queue item",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
}

// idle waits for the poll interval, a wake-up or shutdown.
func (m *Manager) idle(ctx context.Context, lane *laneState) {
	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-lane.wake:
	case <-timer.C:
	}
}

// runReclaimer returns items whose worker stopped heartbeating to pending.
// One loop covers every lane.
func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()
	logger := logging.NewComponentLogger(m.logger, "workflow-reclaimer")
	ticker := time.NewTicker(m.heartbeat.heartbeatInterval)
	defer ticker.Stop()

	for {
		err := m.heartbeat.ReclaimStaleItems(ctx, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("reclaim stale processing failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Wake()
		}
	}
}

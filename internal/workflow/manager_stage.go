package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"contentflow/internal/events"
	"contentflow/internal/logging"
	"contentflow/internal/metrics"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/stage"
)

// Pause messages recorded on items waiting for the user.
const (
	messageAwaitingApproval = "Awaiting publish approval"
	messageRegenerated      = "Regenerated; waiting for next action"
)

func (m *Manager) processItem(ctx context.Context, lane *laneState, laneLogger *slog.Logger, item *queue.Item) error {
	stg, ok := lane.stageFor(item.LastStage)
	if !ok {
		laneLogger.Warn("no stage configured for requested stage",
			logging.String(logging.FieldStage, string(item.LastStage)),
			logging.Int64(logging.FieldItemID, item.ID),
		)
		m.idle(ctx, lane)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, lane, stg.name(), item, requestID)
	stageLogger := m.stageLoggerForLane(stageCtx, laneLogger, item)
	if aware, ok := stg.handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}
	if aware, ok := stg.handler.(stage.ProgressAware); ok {
		aware.SetProgressReporter(m.progressReporter())
	}

	if err := m.transitionToProcessing(stageCtx, stg, item); err != nil {
		stageLogger.Error("failed to transition item to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, item)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, item *queue.Item) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("topic", item.Topic),
		logging.String(logging.FieldPlatform, item.Platform),
		logging.Bool("single_stage", item.SingleStage),
	)

	handler := stg.handler
	if handler == nil {
		err := services.Wrap(services.ErrConfiguration, stg.name(), "resolve handler", "No handler is configured for this stage", nil)
		m.handleStageFailure(ctx, stg, item, err, time.Since(stageStart))
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return err
		}
		m.handleStageFailure(ctx, stg, item, err, time.Since(stageStart))
		m.setLastError(err)
		return err
	}
	if err := m.persist(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, handler, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg, item, execErr, time.Since(stageStart))
		m.setLastError(execErr)
		return execErr
	}

	if err := item.Complete(stg.stage); err != nil {
		wrapped := fmt.Errorf("complete %s: %w", stg.name(), err)
		stageLogger.Error("stage result rejected by state machine", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	hold := m.advance(stageLogger, item)
	if err := m.persist(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	elapsed := time.Since(stageStart)
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.String("next_stage", string(item.LastStage)),
		logging.String(logging.FieldProgressMessage, item.ProgressMessage),
		logging.Duration("stage_duration", elapsed),
	)
	m.metrics.ObserveStage(stg.name(), metrics.OutcomeSuccess, elapsed)
	m.setLastItem(item)

	switch {
	case item.Stages.Terminal() && stg.stage == pipeline.StageSocialPost:
		m.notifyPublished(ctx, item)
	case hold == holdApproval:
		m.notifyApprovalRequired(ctx, item)
	}
	m.checkQueueCompletion(ctx)
	return nil
}

type holdReason int

const (
	holdNone holdReason = iota
	holdRegenerated
	holdApproval
	holdBlocked
)

// advance decides what happens after a successful stage: begin the next
// stage of the chain, or park the item for the user.
func (m *Manager) advance(logger *slog.Logger, item *queue.Item) holdReason {
	if item.SingleStage {
		if item.Status == queue.StatusPaused {
			item.Pause(messageRegenerated)
			return holdRegenerated
		}
		return holdNone
	}
	next, ok := item.Stages.Next()
	if !ok {
		return holdNone
	}
	if next == pipeline.StageSocialPost && m.cfg.Workflow.RequirePublishApproval {
		item.Pause(messageAwaitingApproval)
		logger.Info("publishing held for approval",
			logging.String(logging.FieldEventType, "publish_approval_required"),
		)
		return holdApproval
	}
	if err := item.Begin(next); err != nil {
		// Next only reports startable stages.
		logger.Error("failed to begin next stage", logging.Error(err), logging.String("next_stage", string(next)))
		item.Pause(err.Error())
		return holdBlocked
	}
	return holdNone
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = queue.StatusProcessing
	item.LastHeartbeat = &now
	item.SetProgress(stg.stage.Label(), fmt.Sprintf("%s started", stg.stage.Label()), 0)
	if err := m.persist(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastItem(item)
	m.markQueueActive()
	return nil
}

// persist writes the item and announces the change.
func (m *Manager) persist(ctx context.Context, item *queue.Item) error {
	if err := m.store.Update(ctx, item); err != nil {
		return err
	}
	m.publish(events.ItemEvent(events.TypeItemUpdated, item))
	return nil
}

// progressReporter saves mid-stage progress. The worker's copy still holds
// the claim-time heartbeat and must not overwrite the heartbeat loop's.
func (m *Manager) progressReporter() stage.ProgressReporter {
	return func(ctx context.Context, item *queue.Item) error {
		if item.Status == queue.StatusProcessing {
			now := time.Now().UTC()
			item.LastHeartbeat = &now
		}
		return m.persist(ctx, item)
	}
}

func (m *Manager) publish(evt events.Event) {
	if m.events != nil {
		m.events.Publish(evt)
	}
}

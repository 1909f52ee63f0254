package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contentflow/internal/logging"
	"contentflow/internal/metrics"
	"contentflow/internal/queue"
	"contentflow/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stg pipelineStage, item *queue.Item, stageErr error, elapsed time.Duration) {
	logger := logging.WithContext(ctx, m.logger)

	message := classifyStageFailure(stg.name(), stageErr)
	details := services.Details(stageErr)
	if err := item.Fail(stg.stage, message, details.Code); err != nil {
		// The stage was not generating (reclaimed mid-run); record the error anyway.
		item.Status = queue.StatusFailed
		item.ErrorMessage = message
		item.ErrorCode = details.Code
		item.FailedStage = stg.stage
	}

	cause := stageErr
	if details.Cause != nil {
		cause = details.Cause
	}
	attrs := []logging.Attr{
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String(logging.FieldErrorMessage, strings.TrimSpace(message)),
		logging.Alert("stage_failure"),
		logging.Duration("stage_duration", elapsed),
	}
	attrs = append(attrs, logging.ErrorAttrs(cause, string(details.Kind), details.Operation, details.Code, details.Hint)...)
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
	logger.Error("stage failed", logging.Args(attrs...)...)

	if err := m.persist(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.metrics.ObserveStage(stg.name(), metrics.OutcomeError, elapsed)
	m.setLastItem(item)
	m.notifyStageError(ctx, stg.name(), item, message)
	m.checkQueueCompletion(ctx)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}

	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = stageFailureMessage(stageName, "failed")
	}
	return message
}

func stageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}

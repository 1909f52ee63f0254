package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contentflow/internal/logging"
	"contentflow/internal/notifications"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/stage"
)

// Handler is the stage contract used by the execution helper.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
}

// Resolver returns the handler for a stage, or nil when none is available.
type Resolver func(pipeline.Stage) Handler

// Options controls stage execution and queue persistence behavior.
type Options struct {
	Logger   *slog.Logger
	Store    *queue.Store
	Notifier notifications.Service
	Handlers Resolver
	Item     *queue.Item
	// Through stops the chain after this stage succeeds. Empty runs the
	// whole chain.
	Through pipeline.Stage
}

// ErrStageFailed is returned when a stage leaves the item in failed.
var ErrStageFailed = errors.New("stage failed")

// Run drives the item's requested stage in the foreground and keeps
// following the chain until it finishes, pauses or fails. It is the
// one-shot counterpart of the workflow manager and applies the same
// transitions to the item.
func Run(ctx context.Context, opts Options) error {
	if opts.Handlers == nil {
		return fmt.Errorf("stage handlers unavailable")
	}
	if opts.Store == nil {
		return fmt.Errorf("queue store is required")
	}
	if opts.Item == nil {
		return fmt.Errorf("queue item is required")
	}
	ctx = services.WithItemID(ctx, opts.Item.ID)

	for {
		current, ok := opts.Item.Stages.Active()
		if !ok {
			return nil
		}
		if err := runStage(ctx, opts, current); err != nil {
			return err
		}
		if opts.Item.Status == queue.StatusFailed {
			return fmt.Errorf("%w: %s: %s", ErrStageFailed, current, strings.TrimSpace(opts.Item.ErrorMessage))
		}
		if opts.Item.SingleStage || current == opts.Through {
			if !opts.Item.Stages.Terminal() {
				opts.Item.Pause(fmt.Sprintf("Stopped after %s", current.Label()))
			}
			return persist(ctx, opts.Store, opts.Item)
		}
		next, ok := opts.Item.Stages.Next()
		if !ok {
			return persist(ctx, opts.Store, opts.Item)
		}
		if err := opts.Item.Begin(next); err != nil {
			return fmt.Errorf("begin %s: %w", next, err)
		}
		if err := persist(ctx, opts.Store, opts.Item); err != nil {
			return err
		}
	}
}

func runStage(ctx context.Context, opts Options, current pipeline.Stage) error {
	stageName := string(current)
	stageCtx := services.WithStage(ctx, stageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	handler := opts.Handlers(current)
	if handler == nil {
		err := services.WithCode(
			services.Wrap(services.ErrConfiguration, stageName, "resolve handler", "No handler configured for "+current.Label(), nil),
			"stage_unavailable",
		)
		return handleFailure(stageCtx, stageLogger, opts, current, err)
	}
	if aware, ok := handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}
	if aware, ok := handler.(stage.ProgressAware); ok {
		aware.SetProgressReporter(func(ctx context.Context, item *queue.Item) error {
			return opts.Store.Update(ctx, item)
		})
	}

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("topic", strings.TrimSpace(opts.Item.Topic)),
		logging.String(logging.FieldPlatform, opts.Item.Platform),
	)

	started := time.Now()
	now := started.UTC()
	opts.Item.Status = queue.StatusProcessing
	opts.Item.LastHeartbeat = &now
	opts.Item.SetProgress(current.Label(), fmt.Sprintf("%s started", current.Label()), 0)
	if err := opts.Store.Update(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := handler.Prepare(stageCtx, opts.Item); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, current, err)
	}
	if err := opts.Store.Update(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := handler.Execute(stageCtx, opts.Item); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, current, err)
	}
	if err := opts.Item.Complete(current); err != nil {
		return fmt.Errorf("complete %s: %w", current, err)
	}
	if err := opts.Store.Update(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(opts.Item.Status)),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, current pipeline.Stage, stageErr error) error {
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if err := opts.Item.Fail(current, message, details.Code); err != nil {
		opts.Item.Status = queue.StatusFailed
		opts.Item.ErrorMessage = message
		opts.Item.ErrorCode = details.Code
		opts.Item.FailedStage = current
	}

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String(logging.FieldErrorMessage, message),
		logging.String(logging.FieldErrorCode, details.Code),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(stageErr),
	)
	if err := opts.Store.Update(ctx, opts.Item); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if opts.Notifier != nil {
		if err := opts.Notifier.Publish(ctx, notifications.EventItemFailed, notifications.Payload{
			"id":    opts.Item.ID,
			"stage": string(current),
			"topic": opts.Item.Topic,
			"error": message,
		}); err != nil {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}
	return nil
}

func persist(ctx context.Context, store *queue.Store, item *queue.Item) error {
	if err := store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist item: %w", err)
	}
	return nil
}

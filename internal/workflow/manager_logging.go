package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"contentflow/internal/logging"
	"contentflow/internal/queue"
	"contentflow/internal/services"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	name := string(lane.kind)
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", name)),
		logging.String(logging.FieldLane, name),
	)
}

// stageLoggerForLane returns the logger handed to a stage handler. Output
// goes to the lane logger and is teed into the item's own log file.
func (m *Manager) stageLoggerForLane(ctx context.Context, laneLogger *slog.Logger, item *queue.Item) *slog.Logger {
	base := laneLogger
	if base == nil {
		base = m.logger
	}

	if item != nil && m.itemLogs != nil {
		path, err := m.itemLogs.Ensure(item)
		if err != nil {
			base.Debug("item log unavailable", logging.Error(err))
		} else if handler, logErr := m.itemLogs.CreateHandler(path); logErr != nil {
			base.Warn("failed to create item log writer", logging.Error(logErr))
		} else {
			base = logging.TeeLogger(base, handler)
		}
	}

	return logging.WithContext(ctx, base)
}

func withStageContext(ctx context.Context, lane *laneState, stageName string, item *queue.Item, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
		if platform := strings.TrimSpace(item.Platform); platform != "" {
			ctx = services.WithPlatform(ctx, platform)
		}
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if lane != nil {
		ctx = services.WithLane(ctx, string(lane.kind))
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

package logging

import (
	"context"
	"log/slog"

	"contentflow/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for content item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for workflow lane names.
	FieldLane = "lane"
	// FieldPlatform is the standardized structured logging key for target platforms.
	FieldPlatform = "platform"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType names the kind of event a log line records.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldErrorKind classifies an error (validation, configuration, external...).
	FieldErrorKind = "error_kind"
	// FieldErrorOperation names the operation that failed.
	FieldErrorOperation = "error_operation"
	// FieldErrorCode carries the stable machine-readable error code.
	FieldErrorCode = "error_code"
	// FieldErrorMessage carries the user-facing error message.
	FieldErrorMessage = "error_message"
	// FieldProgressStage is the stage label reported with progress updates.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent is the completion percentage reported with progress updates.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage is the free-form progress text.
	FieldProgressMessage = "progress_message"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields turns the work scope attached to ctx into log attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	scope := services.ScopeFrom(ctx)
	fields := make([]slog.Attr, 0, 5)
	if scope.ItemID != 0 {
		fields = append(fields, slog.Int64(FieldItemID, scope.ItemID))
	}
	for _, field := range []struct{ key, value string }{
		{FieldStage, scope.Stage},
		{FieldLane, scope.Lane},
		{FieldPlatform, scope.Platform},
		{FieldCorrelationID, scope.RequestID},
	} {
		if field.value != "" {
			fields = append(fields, slog.String(field.key, field.value))
		}
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

package logging

import (
	"context"
	"log/slog"

	"vidscribe/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldRunID identifies one invocation of the batch runner.
	FieldRunID = "run_id"
	// FieldEventType classifies a log line for filtering (job_completed, model_loaded, ...).
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step after a warning or error.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the job error classification.
	FieldErrorKind = "error_kind"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldProgressPercent carries job progress as a percentage.
	FieldProgressPercent = "progress_percent"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
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

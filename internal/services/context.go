package services

import "context"

type contextKey string

const (
	jobIDKey contextKey = "job_id"
	stageKey contextKey = "stage"
	runIDKey contextKey = "run_id"
)

// WithJobID annotates context with the job identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(jobIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

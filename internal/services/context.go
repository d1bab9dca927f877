package services

import "context"

type contextKey string

const (
	batchIDKey   contextKey = "batch_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithBatchID annotates context with the journal batch identifier.
func WithBatchID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the journal batch identifier if present.
func BatchIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(batchIDKey)
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

// WithStage annotates context with the upload stage name.
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

// WithRequestID annotates context with a correlation identifier for remote calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(requestIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

package logging

import (
	"context"
	"log/slog"

	"labelsheet/internal/services"
)

// ContextFields extracts the standard pipeline identifiers from ctx as
// logging attributes. Absent values produce no attribute.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]Attr, 0, 3)
	if id, ok := services.BatchIDFromContext(ctx); ok {
		attrs = append(attrs, Int64(FieldBatchID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, id))
	}
	return attrs
}

// WithContext returns a logger pre-populated with the pipeline identifiers
// carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}

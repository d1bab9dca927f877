package logging

import (
	"context"
	"log/slog"
)

// Attr aliases slog.Attr so call sites avoid importing slog directly.
type Attr = slog.Attr

// Common attribute keys used across the upload pipeline.
const (
	FieldComponent     = "component"
	FieldBatchID       = "batch_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	FieldProjectID     = "project_id"
	FieldDatasetID     = "dataset_id"
	FieldModelRunID    = "model_run_id"
	FieldCount         = "count"
	FieldDuration      = "duration"
)

// String builds a string attribute.
func String(key, value string) Attr { return slog.String(key, value) }

// Int builds an int attribute.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 builds an int64 attribute.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// Bool builds a bool attribute.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Float64 builds a float64 attribute.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Any builds an attribute from an arbitrary value.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// Error builds the conventional error attribute.
func Error(err error) Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Args converts attrs into the variadic ...any form slog methods accept.
func Args(attrs ...Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NoopHandler implements slog.Handler and drops all records.
type NoopHandler struct{}

func (NoopHandler) Enabled(_ context.Context, _ slog.Level) bool { return false }

func (NoopHandler) Handle(_ context.Context, _ slog.Record) error { return nil }

func (h NoopHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h NoopHandler) WithGroup(_ string) slog.Handler { return h }

// NewComponentLogger stamps a component field so the console handler can
// prefix messages with the owning subsystem.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = NewNop()
	}
	if component == "" {
		return base
	}
	return base.With(String(FieldComponent, component))
}

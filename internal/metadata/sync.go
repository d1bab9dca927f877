package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"labelsheet/internal/logging"
	"labelsheet/internal/services"
	"labelsheet/internal/table"
)

// SourceFieldName tags every uploaded row with the integration that created
// it. The field is created on first sync if the platform lacks it.
const SourceFieldName = "labelsheet_source"

// OntologyClient is the slice of the platform client Sync needs.
type OntologyClient interface {
	MetadataFields(ctx context.Context) ([]Field, error)
	CreateMetadataField(ctx context.Context, name, kind string, enumOptions []string) (Field, error)
}

// Sync reconciles a metadata index (field name → kind) against both sides:
// missing table columns are created empty, and missing platform fields are
// created with enum options sourced from the column's unique values. Returns
// the refreshed platform field list.
func Sync(ctx context.Context, client OntologyClient, adapter table.Adapter, index map[string]string, logger *slog.Logger) ([]Field, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	for name, kind := range index {
		switch kind {
		case KindEnum, KindString, KindDatetime, KindNumber:
		default:
			return nil, services.Wrap(services.ErrConfiguration, "metadata", "sync",
				fmt.Sprintf("field %q has invalid metadata type %q", name, kind), nil)
		}
	}

	fields, err := client.MetadataFields(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		known[field.Name] = struct{}{}
	}

	if adapter != nil && len(index) > 0 {
		columns, err := adapter.Columns()
		if err != nil {
			return nil, err
		}
		present := make(map[string]struct{}, len(columns))
		for _, column := range columns {
			present[column] = struct{}{}
		}
		for name := range index {
			if _, ok := present[name]; ok {
				continue
			}
			logger.Info("creating table column for metadata field", logging.Args(logging.String("field", name))...)
			if err := adapter.AddColumn(name, nil); err != nil {
				return nil, err
			}
		}
	}

	refresh := false
	for name, kind := range index {
		if _, ok := known[name]; ok {
			continue
		}
		var enumOptions []string
		if kind == KindEnum && adapter != nil {
			enumOptions, err = adapter.UniqueValues(name)
			if err != nil {
				return nil, err
			}
		}
		logger.Info("creating platform metadata field",
			logging.Args(logging.String("field", name), logging.String("kind", kind))...)
		if _, err := client.CreateMetadataField(ctx, name, kind, enumOptions); err != nil {
			return nil, err
		}
		refresh = true
	}

	if _, ok := known[SourceFieldName]; !ok {
		if _, err := client.CreateMetadataField(ctx, SourceFieldName, KindString, nil); err != nil {
			return nil, err
		}
		refresh = true
	}

	if refresh {
		return client.MetadataFields(ctx)
	}
	return fields, nil
}

package uploader

import (
	"fmt"
	"strings"

	"labelsheet/internal/annotate"
	"labelsheet/internal/metadata"
	"labelsheet/internal/platform"
	"labelsheet/internal/services"
	"labelsheet/internal/table"
)

// sourceTag is the value written to the labelsheet_source metadata field on
// every uploaded data row.
const sourceTag = "labelsheet"

// Row is one table row resolved into upload form. Annotations and
// Predictions map top-level feature names to their parsed instances.
type Row struct {
	GlobalKey   string
	RowData     string
	ExternalID  string
	DatasetID   string
	ProjectID   string
	ModelID     string
	ModelRunID  string
	Metadata    []platform.MetadataValue
	Attachments []platform.Attachment
	Annotations map[string][]annotate.Value
	Predictions map[string][]annotate.Value

	// DataRowID is filled after creation/resolution against the platform.
	DataRowID string
	// Existing marks rows whose global key already belongs to an active data
	// row; they skip creation but still receive annotations.
	Existing bool
}

// Plan is the resolved upload work for one table, in table row order.
type Plan struct {
	Rows []*Row
}

// GlobalKeys returns every row's global key in plan order.
func (p *Plan) GlobalKeys() []string {
	keys := make([]string, len(p.Rows))
	for i, row := range p.Rows {
		keys[i] = row.GlobalKey
	}
	return keys
}

// columnBinding ties one typed table column to its parsed name and type
// token.
type columnBinding struct {
	column string
	name   string
	token  string
}

// buildPlan reads every table row and resolves identity, metadata,
// attachment, annotation, and prediction columns into Rows. Global keys
// default to the row data value and must be unique within the table.
func (u *Uploader) buildPlan(adapter table.Adapter, fields []metadata.Field) (*Plan, error) {
	columns, err := adapter.Columns()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "columns", "read table columns", err)
	}

	var metadataCols, attachmentCols, annotationCols, predictionCols []columnBinding
	for _, column := range columns {
		if !strings.Contains(column, u.codec.Divider()) {
			continue
		}
		parts := u.codec.Split(column)
		if len(parts) != 3 {
			continue
		}
		binding := columnBinding{column: column, name: parts[2]}
		switch strings.ToLower(parts[0]) {
		case "metadata":
			binding.token = strings.ToLower(parts[1])
			metadataCols = append(metadataCols, binding)
		case "attachment":
			binding.token = strings.ToUpper(parts[1])
			attachmentCols = append(attachmentCols, binding)
		case "annotation":
			binding.token = strings.ToLower(parts[1])
			annotationCols = append(annotationCols, binding)
		case "prediction":
			binding.token = strings.ToLower(parts[1])
			predictionCols = append(predictionCols, binding)
		}
	}

	_, nameToSchema := metadata.NameKeys(fields, u.codec)

	rows, err := adapter.Rows()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "rows", "read table rows", err)
	}

	plan := &Plan{Rows: make([]*Row, 0, len(rows))}
	seen := make(map[string]int, len(rows))
	for i, raw := range rows {
		row := &Row{
			GlobalKey:  cellString(raw[table.ColumnGlobalKey]),
			RowData:    cellString(raw[table.ColumnRowData]),
			ExternalID: cellString(raw[table.ColumnExternalID]),
			DatasetID:  cellString(raw[table.ColumnDatasetID]),
			ProjectID:  cellString(raw[table.ColumnProjectID]),
			ModelID:    cellString(raw[table.ColumnModelID]),
			ModelRunID: cellString(raw[table.ColumnModelRunID]),
		}
		if row.GlobalKey == "" {
			row.GlobalKey = row.RowData
		}
		if row.GlobalKey == "" {
			return nil, services.Wrap(services.ErrValidation, "plan", "rows",
				fmt.Sprintf("row %d has neither a global_key nor row_data value", i+1), nil)
		}
		if previous, ok := seen[row.GlobalKey]; ok {
			return nil, services.Wrap(services.ErrValidation, "plan", "rows",
				fmt.Sprintf("global key %q appears in rows %d and %d", row.GlobalKey, previous+1, i+1), nil)
		}
		seen[row.GlobalKey] = i

		for _, binding := range metadataCols {
			schemaID, ok := nameToSchema[binding.name]
			if !ok {
				return nil, services.Wrap(services.ErrConfiguration, "plan", "metadata",
					fmt.Sprintf("metadata field %q is missing from the platform ontology after sync", binding.name), nil)
			}
			value, ok := metadata.CoerceValue(raw[binding.column], binding.token, binding.name, nameToSchema, u.codec)
			if !ok {
				continue
			}
			row.Metadata = append(row.Metadata, platform.MetadataValue{SchemaID: schemaID, Value: value})
		}
		if schemaID, ok := nameToSchema[metadata.SourceFieldName]; ok {
			row.Metadata = append(row.Metadata, platform.MetadataValue{SchemaID: schemaID, Value: sourceTag})
		}

		for _, binding := range attachmentCols {
			value := cellString(raw[binding.column])
			if value == "" {
				continue
			}
			row.Attachments = append(row.Attachments, platform.Attachment{
				Type:  binding.token,
				Value: value,
				Name:  binding.name,
			})
		}

		row.Annotations, err = u.parseFeatureColumns(annotationCols, raw)
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", row.GlobalKey, err)
		}
		row.Predictions, err = u.parseFeatureColumns(predictionCols, raw)
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", row.GlobalKey, err)
		}

		plan.Rows = append(plan.Rows, row)
	}
	return plan, nil
}

func (u *Uploader) parseFeatureColumns(bindings []columnBinding, raw map[string]any) (map[string][]annotate.Value, error) {
	var features map[string][]annotate.Value
	for _, binding := range bindings {
		values, err := ParseCell(binding.token, raw[binding.column], u.codec)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", binding.column, err)
		}
		if len(values) == 0 {
			continue
		}
		if features == nil {
			features = make(map[string][]annotate.Value)
		}
		features[binding.name] = append(features[binding.name], values...)
	}
	return features, nil
}

// cellString flattens a cell to a trimmed string, treating nil and the
// spreadsheet "nan" marker as empty.
func cellString(value any) string {
	if value == nil {
		return ""
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if strings.EqualFold(text, "nan") || text == "<nil>" {
		return ""
	}
	return text
}

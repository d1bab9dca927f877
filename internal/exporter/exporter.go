package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"labelsheet/internal/annotate"
	"labelsheet/internal/config"
	"labelsheet/internal/logging"
	"labelsheet/internal/namepath"
	"labelsheet/internal/ontology"
	"labelsheet/internal/table"
)

// API is the slice of the platform client the exporter calls.
type API interface {
	Ontology(ctx context.Context, projectID string) (map[string]any, error)
	ExportLabels(ctx context.Context, projectID string) ([]map[string]any, error)
}

// Identity columns present on every exported table, before the per-feature
// annotation columns.
var identityColumns = []string{
	table.ColumnGlobalKey,
	table.ColumnRowData,
	"data_row_id",
	"label_id",
	table.ColumnExternalID,
}

// Exporter turns a project's exported labels into a flat table: one row per
// label, identity columns plus one annotation column per top-level feature.
type Exporter struct {
	api    API
	codec  namepath.Codec
	logger *slog.Logger
}

// New builds an Exporter. A nil logger disables logging.
func New(api API, cfg *config.Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		api:    api,
		codec:  namepath.New(cfg.Annotate.Divider),
		logger: logging.NewComponentLogger(logger, "exporter"),
	}
}

// Export fetches and flattens every label of one project. Annotation columns
// are named annotation{divider}type{divider}name and appear in first-seen
// order; cells hold the same JSON instance tuples the uploader consumes, so
// an exported table can be re-uploaded unchanged.
func (e *Exporter) Export(ctx context.Context, projectID string) (*table.Memory, error) {
	payload, err := e.api.Ontology(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tree, err := ontology.Parse(payload)
	if err != nil {
		return nil, err
	}
	index, err := ontology.BuildIndex(tree, e.codec, ontology.Forward)
	if err != nil {
		return nil, err
	}
	decoder, err := annotate.NewDecoder(index)
	if err != nil {
		return nil, err
	}

	labels, err := e.api.ExportLabels(ctx, projectID)
	if err != nil {
		return nil, err
	}

	columns := append([]string(nil), identityColumns...)
	known := make(map[string]struct{}, len(columns))
	for _, column := range columns {
		known[column] = struct{}{}
	}

	rows := make([]map[string]any, 0, len(labels))
	for i, label := range labels {
		features, err := decoder.Decode(label)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", i+1, err)
		}

		row := e.identityValues(label)
		names := make([]string, 0, len(features))
		for name := range features {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			feature := features[name]
			column := e.codec.Join("annotation", feature.Type, feature.Name)
			if _, ok := known[column]; !ok {
				known[column] = struct{}{}
				columns = append(columns, column)
			}
			cell, err := formatCell(feature)
			if err != nil {
				return nil, fmt.Errorf("label %d: feature %q: %w", i+1, name, err)
			}
			row[column] = cell
		}
		rows = append(rows, row)
	}

	memory, err := table.NewMemory(columns...)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := memory.AppendRow(row); err != nil {
			return nil, err
		}
	}

	e.logger.Info("labels exported",
		logging.Args(
			logging.String(logging.FieldProjectID, projectID),
			logging.Int(logging.FieldCount, len(rows)),
		)...)
	return memory, nil
}

// identityValues reads the label and data row identifiers from one exported
// label.
func (e *Exporter) identityValues(label map[string]any) map[string]any {
	row := map[string]any{
		"label_id": stringOf(label["id"]),
	}
	if dataRow, ok := label["dataRow"].(map[string]any); ok {
		row[table.ColumnGlobalKey] = stringOf(dataRow["globalKey"])
		row[table.ColumnRowData] = stringOf(dataRow["rowData"])
		row["data_row_id"] = stringOf(dataRow["id"])
		row[table.ColumnExternalID] = stringOf(dataRow["externalId"])
	}
	return row
}

func stringOf(value any) string {
	text, _ := value.(string)
	return text
}

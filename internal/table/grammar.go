package table

import (
	"fmt"
	"strings"

	"labelsheet/internal/namepath"
	"labelsheet/internal/services"
)

// Identity column names carried through uploads without type tokens.
const (
	ColumnRowData    = "row_data"
	ColumnGlobalKey  = "global_key"
	ColumnExternalID = "external_id"
	ColumnDatasetID  = "dataset_id"
	ColumnProjectID  = "project_id"
	ColumnModelID    = "model_id"
	ColumnModelRunID = "model_run_id"
)

var identityColumns = map[string]struct{}{
	ColumnRowData:    {},
	ColumnGlobalKey:  {},
	ColumnExternalID: {},
	ColumnDatasetID:  {},
	ColumnProjectID:  {},
	ColumnModelID:    {},
	ColumnModelRunID: {},
}

var (
	metadataTypes   = []string{"enum", "string", "datetime", "number"}
	attachmentTypes = []string{"IMAGE", "VIDEO", "RAW_TEXT", "HTML", "TEXT_URL"}
	annotationTypes = []string{
		"bbox", "polygon", "point", "mask", "line", "named-entity",
		"radio", "checklist", "text",
		"geo_bbox", "geo_polygon", "geo_point", "geo_line",
	}
)

// Indexes records the typed columns discovered in a table, keyed by the
// trailing name token of each column.
type Indexes struct {
	// Metadata maps field name to its lowercased metadata type.
	Metadata map[string]string
	// Attachment maps attachment name to its uppercased attachment type.
	Attachment map[string]string
	// Annotation maps top-level feature name to its lowercased type.
	Annotation map[string]string
	// Prediction maps top-level feature name to its lowercased type.
	Prediction map[string]string
}

// IsIdentity reports whether name is one of the fixed identity columns.
func IsIdentity(name string) bool {
	_, ok := identityColumns[name]
	return ok
}

// ColumnName assembles a typed column name from its three tokens.
func ColumnName(codec namepath.Codec, class, columnType, name string) string {
	return codec.Join(class, columnType, name)
}

// ParseColumns classifies every divider-delimited column name into the typed
// indexes. Columns without a divider are identity or passthrough columns and
// are left alone. An unknown class or type token is a configuration error
// naming the offending column.
func ParseColumns(columns []string, codec namepath.Codec) (Indexes, error) {
	indexes := Indexes{
		Metadata:   make(map[string]string),
		Attachment: make(map[string]string),
		Annotation: make(map[string]string),
		Prediction: make(map[string]string),
	}

	for _, column := range columns {
		if !strings.Contains(column, codec.Divider()) {
			continue
		}
		parts := codec.Split(column)
		if len(parts) != 3 {
			return Indexes{}, services.Wrap(services.ErrConfiguration, "table", "columns",
				fmt.Sprintf("column %q must have exactly class%stype%sname tokens", column, codec.Divider(), codec.Divider()), nil)
		}
		class, columnType, name := strings.ToLower(parts[0]), parts[1], parts[2]

		switch class {
		case "metadata":
			token := strings.ToLower(columnType)
			if !contains(metadataTypes, token) {
				return Indexes{}, badToken(column, "metadata", metadataTypes)
			}
			indexes.Metadata[name] = token
		case "attachment":
			token := strings.ToUpper(columnType)
			if !contains(attachmentTypes, token) {
				return Indexes{}, badToken(column, "attachment", attachmentTypes)
			}
			indexes.Attachment[name] = token
		case "annotation":
			token := strings.ToLower(columnType)
			if !contains(annotationTypes, token) {
				return Indexes{}, badToken(column, "annotation", annotationTypes)
			}
			indexes.Annotation[name] = token
		case "prediction":
			token := strings.ToLower(columnType)
			if !contains(annotationTypes, token) {
				return Indexes{}, badToken(column, "prediction", annotationTypes)
			}
			indexes.Prediction[name] = token
		default:
			return Indexes{}, services.Wrap(services.ErrConfiguration, "table", "columns",
				fmt.Sprintf("column %q has unknown class %q, expected metadata, attachment, annotation, or prediction", column, parts[0]), nil)
		}
	}
	return indexes, nil
}

func badToken(column, class string, accepted []string) error {
	return services.Wrap(services.ErrConfiguration, "table", "columns",
		fmt.Sprintf("column %q has an invalid %s type token, accepted values: %s", column, class, strings.Join(accepted, ", ")), nil)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

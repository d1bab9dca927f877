package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"labelsheet/internal/namepath"
)

// Accepted metadata field kinds.
const (
	KindEnum     = "enum"
	KindString   = "string"
	KindDatetime = "datetime"
	KindNumber   = "number"
)

// Field is one metadata field in the platform's metadata ontology.
type Field struct {
	SchemaID string   `json:"schemaId"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Options  []Option `json:"options,omitempty"`
}

// Option is one enum option beneath a metadata field.
type Option struct {
	SchemaID string `json:"schemaId"`
	Label    string `json:"label"`
}

// TypeBySchema maps every field schema id to its kind.
func TypeBySchema(fields []Field) map[string]string {
	types := make(map[string]string, len(fields))
	for _, field := range fields {
		if normalized := normalizeKind(field.Kind); normalized != "" {
			types[field.SchemaID] = normalized
		}
	}
	return types
}

// NameKeys builds both directions of the schema-id ⇄ name-key mapping. Field
// name keys are the field name; enum option name keys are
// field{divider}option.
func NameKeys(fields []Field, codec namepath.Codec) (schemaToName, nameToSchema map[string]string) {
	schemaToName = make(map[string]string)
	nameToSchema = make(map[string]string)
	for _, field := range fields {
		schemaToName[field.SchemaID] = field.Name
		nameToSchema[field.Name] = field.SchemaID
		for _, option := range field.Options {
			nameKey := codec.Join(field.Name, option.Label)
			schemaToName[option.SchemaID] = nameKey
			nameToSchema[nameKey] = option.SchemaID
		}
	}
	return schemaToName, nameToSchema
}

// normalizeKind reduces a platform kind label to one of the four accepted
// kinds, or empty when unrecognized.
func normalizeKind(kind string) string {
	lowered := strings.ToLower(kind)
	for _, candidate := range []string{KindEnum, KindString, KindDatetime, KindNumber} {
		if strings.Contains(lowered, candidate) {
			return candidate
		}
	}
	return ""
}

// CoerceValue screens one cell value into the upload form its metadata type
// requires: enum values become option schema ids, numbers become integer
// strings, datetimes become UTC RFC 3339. The second return is false when
// the value is empty or invalid and the cell should be skipped.
func CoerceValue(value any, metadataType, parentName string, nameToSchema map[string]string, codec namepath.Codec) (string, bool) {
	if value == nil {
		return "", false
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" || strings.EqualFold(text, "nan") {
		return "", false
	}

	switch metadataType {
	case KindEnum:
		nameKey := codec.Join(parentName, text)
		schemaID, ok := nameToSchema[nameKey]
		if !ok {
			return "", false
		}
		return schemaID, true

	case KindNumber:
		switch v := value.(type) {
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return "", false
			}
			return strconv.Itoa(int(v)), true
		default:
			parsed, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return "", false
			}
			return strconv.Itoa(int(parsed)), true
		}

	case KindString:
		return text, true

	case KindDatetime:
		if t, ok := value.(time.Time); ok {
			return t.UTC().Format(time.RFC3339), true
		}
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, text); err == nil {
				return t.UTC().Format(time.RFC3339), true
			}
		}
		return "", false

	default:
		return "", false
	}
}

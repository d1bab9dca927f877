package annotate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"labelsheet/internal/masks"
	"labelsheet/internal/namepath"
	"labelsheet/internal/ontology"
	"labelsheet/internal/services"
)

// Encoder turns flat annotation values into the platform's nested upload
// records. It reads the inverse ontology index to resolve classification
// types along every answer chain.
type Encoder struct {
	index          *ontology.Index
	codec          namepath.Codec
	maskMethod     masks.Method
	withConfidence bool
	newUUID        func() string
}

// EncoderOption customizes an Encoder.
type EncoderOption func(*Encoder)

// WithMaskMethod selects how MaskSource values are read. Default is url.
func WithMaskMethod(method masks.Method) EncoderOption {
	return func(e *Encoder) { e.maskMethod = method }
}

// WithConfidence attaches a confidence field to every record, defaulting to
// zero when the value carries none.
func WithConfidence(enabled bool) EncoderOption {
	return func(e *Encoder) { e.withConfidence = enabled }
}

// WithUUIDSource overrides record uuid generation, for deterministic tests.
func WithUUIDSource(source func() string) EncoderOption {
	return func(e *Encoder) {
		if source != nil {
			e.newUUID = source
		}
	}
}

// NewEncoder builds an Encoder over an inverse-keyed index.
func NewEncoder(index *ontology.Index, opts ...EncoderOption) (*Encoder, error) {
	if index == nil {
		return nil, services.Wrap(services.ErrConfiguration, "encode", "init", "nil ontology index", nil)
	}
	if index.Direction() != ontology.Inverse {
		return nil, services.Wrap(services.ErrConfiguration, "encode", "init", "encoder requires an inverse-keyed index", nil)
	}
	e := &Encoder{
		index:      index,
		codec:      index.Codec(),
		maskMethod: masks.MethodURL,
		newUUID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := masks.ValidateMethod(e.maskMethod); err != nil {
		return nil, err
	}
	return e, nil
}

// Encode builds one upload record for the named top-level feature. A name
// absent from the index fails with a lookup error, never a partial record.
func (e *Encoder) Encode(dataRowID, topLevelName string, value Value) (Annotation, error) {
	entry, err := e.index.Lookup(topLevelName)
	if err != nil {
		return nil, err
	}

	record := Annotation{
		"uuid": e.newUUID(),
		"name": topLevelName,
	}
	if dataRowID != "" {
		record["dataRow"] = map[string]any{"id": dataRowID}
	}

	featureType := strings.TrimPrefix(entry.Type, "geo_")
	switch featureType {
	case "bbox", "polygon", "line", "point", "mask", "named-entity":
		if err := e.encodeGeometry(record, featureType, topLevelName, value); err != nil {
			return nil, err
		}
		if err := e.encodeNestedClassifications(record, topLevelName, value.Paths); err != nil {
			return nil, err
		}
	case "radio", "checklist", "text":
		answerPaths := make([]string, 0, len(value.Paths))
		for _, path := range value.Paths {
			if e.codec.First(path) != topLevelName {
				return nil, services.Wrap(services.ErrValidation, "encode", topLevelName,
					fmt.Sprintf("answer path %q is not rooted at the classification name", path), nil)
			}
			answerPaths = append(answerPaths, e.codec.Strip(path))
		}
		node, err := e.buildClassification(topLevelName, answerPaths)
		if err != nil {
			return nil, err
		}
		for key, field := range node {
			if key == "name" {
				continue
			}
			record[key] = field
		}
	default:
		return nil, services.Wrap(services.ErrConfiguration, "encode", topLevelName,
			fmt.Sprintf("unsupported feature type %q", entry.Type), nil)
	}

	if e.withConfidence {
		confidence := 0.0
		if value.Confidence != nil {
			confidence = *value.Confidence
		}
		record["confidence"] = confidence
	} else if value.Confidence != nil {
		record["confidence"] = *value.Confidence
	}
	return record, nil
}

// EncodeAll encodes every value of one feature for one data row.
func (e *Encoder) EncodeAll(dataRowID, topLevelName string, values []Value) ([]Annotation, error) {
	records := make([]Annotation, 0, len(values))
	for _, value := range values {
		record, err := e.Encode(dataRowID, topLevelName, value)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (e *Encoder) encodeGeometry(record Annotation, featureType, name string, value Value) error {
	switch featureType {
	case "bbox":
		if value.BBox == nil {
			return e.missingGeometry(name, "bbox")
		}
		record["bbox"] = map[string]any{
			"top":    value.BBox.Top,
			"left":   value.BBox.Left,
			"height": value.BBox.Height,
			"width":  value.BBox.Width,
		}
	case "polygon":
		if len(value.Polygon) == 0 {
			return e.missingGeometry(name, "polygon")
		}
		record["polygon"] = pointsPayload(value.Polygon)
	case "line":
		if len(value.Line) == 0 {
			return e.missingGeometry(name, "line")
		}
		record["line"] = pointsPayload(value.Line)
	case "point":
		if value.Point == nil {
			return e.missingGeometry(name, "point")
		}
		record["point"] = map[string]any{"x": value.Point.X, "y": value.Point.Y}
	case "mask":
		payload, err := e.maskPayload(name, value.Mask)
		if err != nil {
			return err
		}
		record["mask"] = payload
	case "named-entity":
		if value.Entity == nil {
			return e.missingGeometry(name, "named-entity")
		}
		record["location"] = map[string]any{"start": value.Entity.Start, "end": value.Entity.End}
	}
	return nil
}

func (e *Encoder) missingGeometry(name, featureType string) error {
	return services.Wrap(services.ErrValidation, "encode", name,
		fmt.Sprintf("no %s geometry on annotation value", featureType), nil)
}

func pointsPayload(points []Point) []map[string]any {
	payload := make([]map[string]any, len(points))
	for i, point := range points {
		payload[i] = map[string]any{"x": point.X, "y": point.Y}
	}
	return payload
}

func (e *Encoder) maskPayload(name string, source *MaskSource) (map[string]any, error) {
	if source == nil {
		return nil, e.missingGeometry(name, "mask")
	}
	switch e.maskMethod {
	case masks.MethodURL:
		if source.URL == "" {
			return nil, services.Wrap(services.ErrValidation, "encode", name, "mask method url requires a mask URL", nil)
		}
		return map[string]any{
			"instanceURI": source.URL,
			"colorRGB":    []int{source.ColorRGB[0], source.ColorRGB[1], source.ColorRGB[2]},
		}, nil
	case masks.MethodArray:
		data, err := masks.EncodePNG(source.Bitmap)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "encode", name, "rasterize mask array", err)
		}
		return map[string]any{"png": data}, nil
	case masks.MethodPNG:
		if len(source.PNG) == 0 {
			return nil, services.Wrap(services.ErrValidation, "encode", name, "mask method png requires PNG bytes", nil)
		}
		return map[string]any{"png": source.PNG}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "encode", name,
			fmt.Sprintf("unsupported mask method %q", e.maskMethod), nil)
	}
}

// encodeNestedClassifications groups a tool's nested answer paths by their
// immediate child classification name and builds one classification node per
// group. An empty group list leaves the classifications key off entirely.
func (e *Encoder) encodeNestedClassifications(record Annotation, toolName string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	var nodes []Annotation
	for _, childName := range e.codec.UniqueFirsts(paths) {
		answerPaths := e.codec.ChildrenOf(childName, paths)
		node, err := e.buildClassification(e.codec.Join(toolName, childName), answerPaths)
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}
	record["classifications"] = nodes
	return nil
}

// buildClassification builds the nested answer node for the classification at
// classificationPath. answerPaths are rooted beneath the classification name.
func (e *Encoder) buildClassification(classificationPath string, answerPaths []string) (Annotation, error) {
	entry, err := e.index.Lookup(classificationPath)
	if err != nil {
		return nil, err
	}
	name := e.codec.Last(classificationPath)

	switch entry.Type {
	case "radio":
		answerNames := e.codec.UniqueFirsts(answerPaths)
		if len(answerNames) == 0 {
			return nil, services.Wrap(services.ErrValidation, "encode", classificationPath, "radio classification has no answer path", nil)
		}
		answer, err := e.buildAnswer(classificationPath, answerNames[0], answerPaths)
		if err != nil {
			return nil, err
		}
		return Annotation{"name": name, "answer": answer}, nil

	case "checklist":
		answerNames := e.codec.UniqueFirsts(answerPaths)
		answers := make([]Annotation, 0, len(answerNames))
		for _, answerName := range answerNames {
			answer, err := e.buildAnswer(classificationPath, answerName, answerPaths)
			if err != nil {
				return nil, err
			}
			answers = append(answers, answer)
		}
		return Annotation{"name": name, "answers": answers}, nil

	case "text":
		if len(answerPaths) == 0 {
			return nil, services.Wrap(services.ErrValidation, "encode", classificationPath, "text classification has no answer path", nil)
		}
		return Annotation{"name": name, "answer": answerPaths[0]}, nil

	default:
		return nil, services.Wrap(services.ErrConfiguration, "encode", classificationPath,
			fmt.Sprintf("unsupported classification type %q", entry.Type), nil)
	}
}

// buildAnswer builds one answer node, recursing into any classifications
// nested beneath the chosen answer.
func (e *Encoder) buildAnswer(classificationPath, answerName string, answerPaths []string) (Annotation, error) {
	answer := Annotation{"name": answerName}

	nestedPaths := make([]string, 0, len(answerPaths))
	for _, path := range e.codec.ChildrenOf(answerName, answerPaths) {
		if path != "" {
			nestedPaths = append(nestedPaths, path)
		}
	}
	if len(nestedPaths) == 0 {
		return answer, nil
	}

	var nodes []Annotation
	for _, nestedName := range e.codec.UniqueFirsts(nestedPaths) {
		nestedAnswerPaths := e.codec.ChildrenOf(nestedName, nestedPaths)
		nestedPath := e.codec.Join(classificationPath, answerName, nestedName)
		node, err := e.buildClassification(nestedPath, nestedAnswerPaths)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	answer["classifications"] = nodes
	return answer, nil
}

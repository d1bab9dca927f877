package annotate

import (
	"encoding/base64"
	"fmt"
	"strings"

	"labelsheet/internal/namepath"
	"labelsheet/internal/ontology"
	"labelsheet/internal/services"
)

// Feature is the decoded, row-oriented form of every instance of one
// top-level feature within a label.
type Feature struct {
	Name   string
	Type   string
	Values []Value
}

// Decoder flattens exported label trees back into flat annotation values.
// It reads the forward ontology index to resolve node names and types from
// feature schema ids.
type Decoder struct {
	index  *ontology.Index
	codec  namepath.Codec
	byName map[string]ontology.Entry
}

// NewDecoder builds a Decoder over a forward-keyed index.
func NewDecoder(index *ontology.Index) (*Decoder, error) {
	if index == nil {
		return nil, services.Wrap(services.ErrConfiguration, "decode", "init", "nil ontology index", nil)
	}
	if index.Direction() != ontology.Forward {
		return nil, services.Wrap(services.ErrConfiguration, "decode", "init", "decoder requires a forward-keyed index", nil)
	}
	d := &Decoder{
		index:  index,
		codec:  index.Codec(),
		byName: make(map[string]ontology.Entry),
	}
	// Top-level features are addressable by bare name in exports that omit
	// schema ids.
	for _, entry := range index.Detailed() {
		if entry.NamePath == entry.Name {
			d.byName[entry.Name] = entry
		}
	}
	return d, nil
}

// Decode flattens one exported label into per-feature values, keyed by
// top-level feature name. Multiple instances of the same tool collect under
// one feature.
func (d *Decoder) Decode(label map[string]any) (map[string]Feature, error) {
	features := make(map[string]Feature)

	for i, raw := range anyList(label["objects"]) {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "decode", "objects",
				fmt.Sprintf("object %d is %T, expected an object", i, raw), nil)
		}
		entry, err := d.resolveEntry(obj)
		if err != nil {
			return nil, err
		}
		value, err := d.decodeObject(entry, obj)
		if err != nil {
			return nil, err
		}
		feature := features[entry.Name]
		feature.Name = entry.Name
		feature.Type = entry.Type
		feature.Values = append(feature.Values, value)
		features[entry.Name] = feature
	}

	paths, err := d.flatten(anyList(label["classifications"]), "")
	if err != nil {
		return nil, err
	}
	for _, name := range d.codec.UniqueFirsts(paths) {
		entry, ok := d.byName[name]
		if !ok {
			return nil, services.Wrap(services.ErrLookup, "decode", "classifications",
				fmt.Sprintf("no top-level ontology entry named %q", name), nil)
		}
		var group []string
		for _, path := range paths {
			if d.codec.First(path) == name {
				group = append(group, path)
			}
		}
		features[name] = Feature{
			Name:   name,
			Type:   entry.Type,
			Values: []Value{{Paths: group}},
		}
	}

	return features, nil
}

func (d *Decoder) resolveEntry(obj map[string]any) (ontology.Entry, error) {
	if schemaID := stringField(obj, "featureSchemaId"); schemaID != "" {
		return d.index.Lookup(schemaID)
	}
	name := stringField(obj, "name", "title")
	if name == "" {
		return ontology.Entry{}, services.Wrap(services.ErrValidation, "decode", "objects",
			"object carries neither featureSchemaId nor name", nil)
	}
	entry, ok := d.byName[name]
	if !ok {
		return ontology.Entry{}, services.Wrap(services.ErrLookup, "decode", "objects",
			fmt.Sprintf("no top-level ontology entry named %q", name), nil)
	}
	return entry, nil
}

func (d *Decoder) decodeObject(entry ontology.Entry, obj map[string]any) (Value, error) {
	var value Value

	featureType := strings.TrimPrefix(entry.Type, "geo_")
	switch featureType {
	case "bbox":
		payload, ok := obj["bbox"].(map[string]any)
		if !ok {
			return Value{}, d.missingPayload(entry.Name, "bbox")
		}
		value.BBox = &BBox{
			Top:    numField(payload, "top"),
			Left:   numField(payload, "left"),
			Height: numField(payload, "height"),
			Width:  numField(payload, "width"),
		}
	case "polygon":
		points, err := d.decodePoints(entry.Name, obj["polygon"])
		if err != nil {
			return Value{}, err
		}
		value.Polygon = points
	case "line":
		points, err := d.decodePoints(entry.Name, obj["line"])
		if err != nil {
			return Value{}, err
		}
		value.Line = points
	case "point":
		payload, ok := obj["point"].(map[string]any)
		if !ok {
			return Value{}, d.missingPayload(entry.Name, "point")
		}
		value.Point = &Point{X: numField(payload, "x"), Y: numField(payload, "y")}
	case "mask":
		mask, err := d.decodeMask(entry.Name, obj)
		if err != nil {
			return Value{}, err
		}
		value.Mask = mask
	case "named-entity":
		payload, ok := obj["location"].(map[string]any)
		if !ok {
			return Value{}, d.missingPayload(entry.Name, "location")
		}
		value.Entity = &Span{
			Start: int(numField(payload, "start")),
			End:   int(numField(payload, "end")),
		}
	default:
		return Value{}, services.Wrap(services.ErrConfiguration, "decode", entry.Name,
			fmt.Sprintf("unsupported object type %q", entry.Type), nil)
	}

	if confidence, ok := obj["confidence"].(float64); ok {
		value.Confidence = &confidence
	}

	paths, err := d.flatten(anyList(obj["classifications"]), entry.Name)
	if err != nil {
		return Value{}, err
	}
	value.Paths = d.codec.ChildrenOf(entry.Name, paths)
	if len(value.Paths) == 0 {
		value.Paths = nil
	}
	return value, nil
}

func (d *Decoder) missingPayload(name, key string) error {
	return services.Wrap(services.ErrValidation, "decode", name,
		fmt.Sprintf("object has no %s payload", key), nil)
}

func (d *Decoder) decodePoints(name string, raw any) ([]Point, error) {
	list := anyList(raw)
	if len(list) == 0 {
		return nil, d.missingPayload(name, "vertex list")
	}
	points := make([]Point, 0, len(list))
	for i, item := range list {
		payload, ok := item.(map[string]any)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "decode", name,
				fmt.Sprintf("vertex %d is %T, expected an object", i, item), nil)
		}
		points = append(points, Point{X: numField(payload, "x"), Y: numField(payload, "y")})
	}
	return points, nil
}

func (d *Decoder) decodeMask(name string, obj map[string]any) (*MaskSource, error) {
	payload, _ := obj["mask"].(map[string]any)
	if payload == nil {
		// Older exports put the mask URI directly on the object.
		if uri := stringField(obj, "instanceURI"); uri != "" {
			payload = map[string]any{"instanceURI": uri}
			if rgb, ok := obj["colorRGB"]; ok {
				payload["colorRGB"] = rgb
			}
		}
	}
	if payload == nil {
		return nil, d.missingPayload(name, "mask")
	}

	source := &MaskSource{URL: stringField(payload, "instanceURI")}
	if rgb := anyList(payload["colorRGB"]); len(rgb) == 3 {
		for i, channel := range rgb {
			if v, ok := channel.(float64); ok {
				source.ColorRGB[i] = int(v)
			} else if v, ok := channel.(int); ok {
				source.ColorRGB[i] = v
			}
		}
	}
	switch png := payload["png"].(type) {
	case []byte:
		source.PNG = png
	case string:
		decoded, err := base64.StdEncoding.DecodeString(png)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "decode", name, "decode mask PNG bytes", err)
		}
		source.PNG = decoded
	}
	if source.URL == "" && len(source.PNG) == 0 {
		return nil, d.missingPayload(name, "mask")
	}
	return source, nil
}

// flatten walks exported classification nodes into leaf name paths rooted at
// parentPath. Radio and checklist chains extend the path one answer name at a
// time; text answers terminate with the literal text.
func (d *Decoder) flatten(nodes []any, parentPath string) ([]string, error) {
	var paths []string
	for i, raw := range nodes {
		node, ok := raw.(map[string]any)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "decode", "classifications",
				fmt.Sprintf("classification %d is %T, expected an object", i, raw), nil)
		}
		name, err := d.nodeName(node)
		if err != nil {
			return nil, err
		}
		base := d.codec.Join(parentPath, name)

		switch {
		case node["answer"] != nil:
			switch answer := node["answer"].(type) {
			case string:
				paths = append(paths, base+d.codec.Divider()+answer)
			case map[string]any:
				leafPaths, err := d.flattenAnswer(answer, base)
				if err != nil {
					return nil, err
				}
				paths = append(paths, leafPaths...)
			default:
				return nil, services.Wrap(services.ErrValidation, "decode", name,
					fmt.Sprintf("answer is %T, expected an object or string", node["answer"]), nil)
			}
		case node["answers"] != nil:
			for _, rawAnswer := range anyList(node["answers"]) {
				answer, ok := rawAnswer.(map[string]any)
				if !ok {
					return nil, services.Wrap(services.ErrValidation, "decode", name,
						fmt.Sprintf("answers entry is %T, expected an object", rawAnswer), nil)
				}
				leafPaths, err := d.flattenAnswer(answer, base)
				if err != nil {
					return nil, err
				}
				paths = append(paths, leafPaths...)
			}
		case node["text_answer"] != nil:
			switch text := node["text_answer"].(type) {
			case string:
				paths = append(paths, base+d.codec.Divider()+text)
			case map[string]any:
				paths = append(paths, base+d.codec.Divider()+stringField(text, "content"))
			default:
				return nil, services.Wrap(services.ErrValidation, "decode", name,
					fmt.Sprintf("text_answer is %T, expected an object or string", node["text_answer"]), nil)
			}
		default:
			paths = append(paths, base)
		}
	}
	return paths, nil
}

func (d *Decoder) flattenAnswer(answer map[string]any, base string) ([]string, error) {
	answerName, err := d.nodeName(answer)
	if err != nil {
		return nil, err
	}
	answerPath := d.codec.Join(base, answerName)
	nested, err := d.flatten(anyList(answer["classifications"]), answerPath)
	if err != nil {
		return nil, err
	}
	if len(nested) == 0 {
		return []string{answerPath}, nil
	}
	return nested, nil
}

// nodeName resolves a node's display name, preferring a schema-id lookup so
// stale exports still fail loudly when the ontology no longer matches.
func (d *Decoder) nodeName(node map[string]any) (string, error) {
	if schemaID := stringField(node, "featureSchemaId"); schemaID != "" {
		entry, err := d.index.Lookup(schemaID)
		if err != nil {
			return "", err
		}
		return entry.Name, nil
	}
	if name := stringField(node, "name", "title", "label", "value"); name != "" {
		return name, nil
	}
	return "", services.Wrap(services.ErrValidation, "decode", "classifications",
		"node carries neither featureSchemaId nor a name field", nil)
}

func anyList(value any) []any {
	list, _ := value.([]any)
	return list
}

func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := obj[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func numField(obj map[string]any, key string) float64 {
	switch v := obj[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

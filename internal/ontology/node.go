package ontology

import (
	"encoding/json"
	"fmt"

	"labelsheet/internal/services"
)

// Kind discriminates the node variants of an ontology tree.
type Kind string

const (
	KindTool           Kind = "tool"
	KindClassification Kind = "classification"
	KindBranchOption   Kind = "branch_option"
	KindLeafOption     Kind = "leaf_option"
)

// Node is one parsed ontology feature. The raw platform payload discriminates
// variants by key presence; Parse resolves that into an explicit Kind so the
// rest of the codebase never probes maps.
type Node struct {
	Kind     Kind
	Name     string
	Type     string
	SchemaID string
	Children []Node
}

// Tree is a parsed ontology: the ordered top-level tools followed by the
// ordered top-level classifications.
type Tree struct {
	Tools           []Node
	Classifications []Node
}

// Parse converts a raw ontology payload into a Tree. Accepted inputs are a
// decoded JSON object (map[string]any), raw JSON bytes, or a json.RawMessage.
// Anything else is a configuration error naming the input type.
func Parse(input any) (*Tree, error) {
	var raw map[string]any
	switch v := input.(type) {
	case map[string]any:
		raw = v
	case []byte:
		if err := json.Unmarshal(v, &raw); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "ontology", "parse", "invalid ontology JSON", err)
		}
	case json.RawMessage:
		if err := json.Unmarshal(v, &raw); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "ontology", "parse", "invalid ontology JSON", err)
		}
	default:
		return nil, services.Wrap(services.ErrConfiguration, "ontology", "parse",
			fmt.Sprintf("ontology must be a decoded object or JSON bytes, received %T", input), nil)
	}

	tools, err := parseLayer(rawList(raw["tools"]))
	if err != nil {
		return nil, err
	}
	classifications, err := parseLayer(rawList(raw["classifications"]))
	if err != nil {
		return nil, err
	}
	return &Tree{Tools: tools, Classifications: classifications}, nil
}

func rawList(value any) []any {
	list, _ := value.([]any)
	return list
}

func parseLayer(layer []any) ([]Node, error) {
	if len(layer) == 0 {
		return nil, nil
	}
	nodes := make([]Node, 0, len(layer))
	for _, item := range layer {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "ontology", "parse",
				fmt.Sprintf("ontology node must be an object, received %T", item), nil)
		}
		node, err := parseNode(obj)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func parseNode(obj map[string]any) (Node, error) {
	schemaID, _ := obj["featureSchemaId"].(string)

	switch {
	case hasKey(obj, "tool"):
		name, _ := obj["name"].(string)
		toolType, _ := obj["tool"].(string)
		children, err := parseLayer(rawList(obj["classifications"]))
		if err != nil {
			return Node{}, err
		}
		return Node{
			Kind:     KindTool,
			Name:     name,
			Type:     normalizeToolType(toolType),
			SchemaID: schemaID,
			Children: children,
		}, nil

	case hasKey(obj, "instructions"):
		name, _ := obj["instructions"].(string)
		classType, _ := obj["type"].(string)
		children, err := parseLayer(rawList(obj["options"]))
		if err != nil {
			return Node{}, err
		}
		return Node{
			Kind:     KindClassification,
			Name:     name,
			Type:     classType,
			SchemaID: schemaID,
			Children: children,
		}, nil

	case hasKey(obj, "label"):
		name, _ := obj["label"].(string)
		children, err := parseLayer(rawList(obj["options"]))
		if err != nil {
			return Node{}, err
		}
		kind := KindLeafOption
		if len(children) > 0 {
			kind = KindBranchOption
		}
		return Node{
			Kind:     kind,
			Name:     name,
			Type:     "option",
			SchemaID: schemaID,
			Children: children,
		}, nil

	default:
		return Node{}, services.Wrap(services.ErrConfiguration, "ontology", "parse",
			fmt.Sprintf("node has none of the tool/instructions/label discriminant keys: %v", keysOf(obj)), nil)
	}
}

func hasKey(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

func keysOf(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	return keys
}

// normalizeToolType maps raw platform tool type names onto the canonical
// geometry vocabulary. Geo-prefixed variants pass through unchanged.
func normalizeToolType(toolType string) string {
	switch toolType {
	case "rectangle":
		return "bbox"
	case "superpixel", "raster-segmentation":
		return "mask"
	default:
		return toolType
	}
}

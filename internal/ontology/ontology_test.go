package ontology_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"labelsheet/internal/namepath"
	"labelsheet/internal/ontology"
	"labelsheet/internal/services"
)

const sampleOntology = `{
  "tools": [
    {
      "name": "car",
      "tool": "rectangle",
      "featureSchemaId": "schema-car",
      "classifications": [
        {
          "instructions": "damaged",
          "type": "radio",
          "featureSchemaId": "schema-damaged",
          "options": [
            {"label": "yes", "featureSchemaId": "schema-yes"},
            {"label": "no", "featureSchemaId": "schema-no"}
          ]
        }
      ]
    },
    {
      "name": "road",
      "tool": "raster-segmentation",
      "featureSchemaId": "schema-road",
      "classifications": []
    }
  ],
  "classifications": [
    {
      "instructions": "weather",
      "type": "checklist",
      "featureSchemaId": "schema-weather",
      "options": [
        {
          "label": "rain",
          "featureSchemaId": "schema-rain",
          "options": [
            {
              "instructions": "intensity",
              "type": "radio",
              "featureSchemaId": "schema-intensity",
              "options": [
                {"label": "heavy", "featureSchemaId": "schema-heavy"}
              ]
            }
          ]
        },
        {"label": "sun", "featureSchemaId": "schema-sun"}
      ]
    },
    {
      "instructions": "comment",
      "type": "text",
      "featureSchemaId": "schema-comment",
      "options": []
    }
  ]
}`

func mustParse(t *testing.T) *ontology.Tree {
	t.Helper()
	tree, err := ontology.Parse([]byte(sampleOntology))
	if err != nil {
		t.Fatalf("parse ontology: %v", err)
	}
	return tree
}

func TestParseTagsNodes(t *testing.T) {
	tree := mustParse(t)

	if len(tree.Tools) != 2 || len(tree.Classifications) != 2 {
		t.Fatalf("unexpected shape: %d tools, %d classifications", len(tree.Tools), len(tree.Classifications))
	}

	car := tree.Tools[0]
	if car.Kind != ontology.KindTool || car.Name != "car" || car.Type != "bbox" {
		t.Fatalf("car node = %+v", car)
	}
	if tree.Tools[1].Type != "mask" {
		t.Fatalf("raster-segmentation should normalize to mask, got %q", tree.Tools[1].Type)
	}

	damaged := car.Children[0]
	if damaged.Kind != ontology.KindClassification || damaged.Type != "radio" {
		t.Fatalf("damaged node = %+v", damaged)
	}
	if damaged.Children[0].Kind != ontology.KindLeafOption {
		t.Fatalf("yes option kind = %s", damaged.Children[0].Kind)
	}

	rain := tree.Classifications[0].Children[0]
	if rain.Kind != ontology.KindBranchOption {
		t.Fatalf("rain option kind = %s", rain.Kind)
	}
	if rain.Children[0].Kind != ontology.KindClassification {
		t.Fatalf("nested intensity kind = %s", rain.Children[0].Kind)
	}
}

func TestParseRejectsUnknownInputType(t *testing.T) {
	_, err := ontology.Parse(42)
	if err == nil {
		t.Fatal("expected error for int input")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestParseRejectsUndiscriminatedNode(t *testing.T) {
	payload := `{"tools": [{"featureSchemaId": "x"}], "classifications": []}`
	_, err := ontology.Parse([]byte(payload))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestParseAcceptsDecodedMap(t *testing.T) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(sampleOntology), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tree, err := ontology.Parse(decoded)
	if err != nil {
		t.Fatalf("parse map: %v", err)
	}
	if len(tree.Tools) != 2 {
		t.Fatalf("tools = %d", len(tree.Tools))
	}
}

func TestBuildIndexEncodedValues(t *testing.T) {
	tree := mustParse(t)
	codec := namepath.New("///")

	idx, err := ontology.BuildIndex(tree, codec, ontology.Forward)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	// Depth-first pre-order, tools then classifications, 1-based.
	wantValues := map[string]int{
		"schema-car":       1,
		"schema-damaged":   2,
		"schema-yes":       3,
		"schema-no":        4,
		"schema-road":      5,
		"schema-weather":   6,
		"schema-rain":      7,
		"schema-intensity": 8,
		"schema-heavy":     9,
		"schema-sun":       10,
		"schema-comment":   11,
	}
	if idx.Len() != len(wantValues) {
		t.Fatalf("indexed %d nodes, want %d", idx.Len(), len(wantValues))
	}
	for schemaID, want := range wantValues {
		entry, err := idx.Lookup(schemaID)
		if err != nil {
			t.Fatalf("lookup %s: %v", schemaID, err)
		}
		if entry.EncodedValue != want {
			t.Fatalf("%s encoded value = %d, want %d", schemaID, entry.EncodedValue, want)
		}
	}

	entry, err := idx.Lookup("schema-heavy")
	if err != nil {
		t.Fatalf("lookup heavy: %v", err)
	}
	if entry.NamePath != "weather///rain///intensity///heavy" {
		t.Fatalf("heavy path = %q", entry.NamePath)
	}
}

func TestBuildIndexDeterministic(t *testing.T) {
	tree := mustParse(t)
	codec := namepath.New("///")

	first, err := ontology.BuildIndex(tree, codec, ontology.Forward)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := ontology.BuildIndex(tree, codec, ontology.Forward)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if !reflect.DeepEqual(first.Detailed(), second.Detailed()) {
		t.Fatal("index builds differ for identical input")
	}
	if !reflect.DeepEqual(first.Keys(), second.Keys()) {
		t.Fatal("traversal order differs for identical input")
	}
}

func TestInverseIndexKeysByPath(t *testing.T) {
	tree := mustParse(t)
	codec := namepath.New("///")

	idx, err := ontology.BuildIndex(tree, codec, ontology.Inverse)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	entry, err := idx.Lookup("car///damaged")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry.SchemaID != "schema-damaged" || entry.Type != "radio" {
		t.Fatalf("entry = %+v", entry)
	}

	plain := idx.Plain()
	if plain["car"] != "schema-car" {
		t.Fatalf("plain[car] = %q", plain["car"])
	}
}

func TestLookupMissIsLookupError(t *testing.T) {
	tree := mustParse(t)
	idx, err := ontology.BuildIndex(tree, namepath.New("///"), ontology.Inverse)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	_, err = idx.Lookup("bicycle")
	if !errors.Is(err, services.ErrLookup) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestForwardPlainMapping(t *testing.T) {
	tree := mustParse(t)
	idx, err := ontology.BuildIndex(tree, namepath.New("///"), ontology.Forward)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	plain := idx.Plain()
	if plain["schema-yes"] != "car///damaged///yes" {
		t.Fatalf("plain[schema-yes] = %q", plain["schema-yes"])
	}
}

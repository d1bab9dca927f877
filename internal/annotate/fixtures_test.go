package annotate_test

import (
	"testing"

	"labelsheet/internal/namepath"
	"labelsheet/internal/ontology"
)

const fixtureOntology = `{
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
            {
              "label": "yes",
              "featureSchemaId": "schema-yes",
              "options": [
                {
                  "instructions": "severity",
                  "type": "radio",
                  "featureSchemaId": "schema-severity",
                  "options": [
                    {"label": "minor", "featureSchemaId": "schema-minor"},
                    {"label": "major", "featureSchemaId": "schema-major"}
                  ]
                }
              ]
            },
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
    },
    {
      "name": "route",
      "tool": "line",
      "featureSchemaId": "schema-route",
      "classifications": []
    },
    {
      "name": "marker",
      "tool": "point",
      "featureSchemaId": "schema-marker",
      "classifications": []
    },
    {
      "name": "region",
      "tool": "polygon",
      "featureSchemaId": "schema-region",
      "classifications": []
    },
    {
      "name": "mention",
      "tool": "named-entity",
      "featureSchemaId": "schema-mention",
      "classifications": []
    }
  ],
  "classifications": [
    {
      "instructions": "comment",
      "type": "text",
      "featureSchemaId": "schema-comment",
      "options": []
    },
    {
      "instructions": "color",
      "type": "checklist",
      "featureSchemaId": "schema-color",
      "options": [
        {"label": "red", "featureSchemaId": "schema-red"},
        {"label": "blue", "featureSchemaId": "schema-blue"}
      ]
    }
  ]
}`

func buildIndex(t *testing.T, direction ontology.Direction) *ontology.Index {
	t.Helper()
	tree, err := ontology.Parse([]byte(fixtureOntology))
	if err != nil {
		t.Fatalf("parse fixture ontology: %v", err)
	}
	idx, err := ontology.BuildIndex(tree, namepath.New("///"), direction)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"labelsheet/internal/annotate"
	"labelsheet/internal/coco"
	"labelsheet/internal/config"
	"labelsheet/internal/namepath"
	"labelsheet/internal/ontology"
	"labelsheet/internal/platform"
)

// exportCOCO decodes every exported label and writes the project as one COCO
// dataset. Only geometry tools convert; classification-only labels still
// contribute an image entry.
func exportCOCO(ctx context.Context, client *platform.Client, cfg *config.Config, projectID string, out io.Writer) error {
	payload, err := client.Ontology(ctx, projectID)
	if err != nil {
		return err
	}
	tree, err := ontology.Parse(payload)
	if err != nil {
		return err
	}
	codec := namepath.New(cfg.Annotate.Divider)
	forward, err := ontology.BuildIndex(tree, codec, ontology.Forward)
	if err != nil {
		return err
	}
	inverse, err := ontology.BuildIndex(tree, codec, ontology.Inverse)
	if err != nil {
		return err
	}
	decoder, err := annotate.NewDecoder(forward)
	if err != nil {
		return err
	}
	converter, err := coco.NewConverter(inverse, coco.WithWorkers(cfg.Upload.Workers))
	if err != nil {
		return err
	}

	labels, err := client.ExportLabels(ctx, projectID)
	if err != nil {
		return err
	}

	var images []coco.Image
	var items []coco.Item
	for i, label := range labels {
		features, err := decoder.Decode(label)
		if err != nil {
			return fmt.Errorf("label %d: %w", i+1, err)
		}

		dataRow, _ := label["dataRow"].(map[string]any)
		imageID, _ := dataRow["id"].(string)
		rowData, _ := dataRow["rowData"].(string)
		externalID, _ := dataRow["externalId"].(string)
		if externalID == "" {
			externalID = rowData
		}
		images = append(images, coco.Image{
			License:  1,
			FileName: externalID,
			ID:       imageID,
			CocoURL:  rowData,
		})

		names := make([]string, 0, len(features))
		for name := range features {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			feature := features[name]
			if !isGeometry(feature.Type) {
				continue
			}
			for _, value := range feature.Values {
				items = append(items, coco.Item{ImageID: imageID, Feature: name, Value: value})
			}
		}
	}

	now := time.Now()
	info := coco.Info{
		Description: fmt.Sprintf("project %s", projectID),
		Version:     "1.0",
		Year:        now.Year(),
		DateCreated: now.Format("2006-01-02"),
	}
	dataset, err := converter.Build(ctx, info, images, items)
	if err != nil {
		return err
	}
	return writeJSONTo(out, dataset)
}

func isGeometry(featureType string) bool {
	switch strings.TrimPrefix(featureType, "geo_") {
	case "bbox", "line", "point", "polygon", "mask":
		return true
	default:
		return false
	}
}

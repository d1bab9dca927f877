package exporter

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"labelsheet/internal/annotate"
	"labelsheet/internal/services"
)

// formatCell serializes one decoded feature back into the JSON cell shape
// the uploader parses: tool cells are arrays of [geometry, paths?,
// confidence?] tuples, classification cells are name-path arrays with an
// optional trailing confidence.
func formatCell(feature annotate.Feature) (string, error) {
	featureType := strings.TrimPrefix(feature.Type, "geo_")

	var payload any
	switch featureType {
	case "radio", "checklist", "text":
		cell := make([]any, 0, len(feature.Values)+1)
		for _, value := range feature.Values {
			for _, path := range value.Paths {
				cell = append(cell, path)
			}
			if value.Confidence != nil {
				cell = append(cell, *value.Confidence)
			}
		}
		payload = cell
	case "bbox", "polygon", "line", "point", "mask", "named-entity":
		instances := make([]any, 0, len(feature.Values))
		for _, value := range feature.Values {
			tuple, err := formatInstance(featureType, value)
			if err != nil {
				return "", err
			}
			instances = append(instances, tuple)
		}
		payload = instances
	default:
		return "", services.Wrap(services.ErrConfiguration, "export", "cells",
			fmt.Sprintf("unsupported feature type %q", feature.Type), nil)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "export", "cells", "serialize cell", err)
	}
	return string(data), nil
}

func formatInstance(featureType string, value annotate.Value) ([]any, error) {
	geometry, err := formatGeometry(featureType, value)
	if err != nil {
		return nil, err
	}
	tuple := []any{geometry}
	if len(value.Paths) > 0 || value.Confidence != nil {
		// A nil path list must serialize as [], not null, or the cell
		// grammar rejects the confidence element on re-upload.
		paths := value.Paths
		if paths == nil {
			paths = []string{}
		}
		tuple = append(tuple, paths)
	}
	if value.Confidence != nil {
		tuple = append(tuple, *value.Confidence)
	}
	return tuple, nil
}

func formatGeometry(featureType string, value annotate.Value) (any, error) {
	missing := func() error {
		return services.Wrap(services.ErrValidation, "export", "cells",
			fmt.Sprintf("decoded value has no %s geometry", featureType), nil)
	}
	switch featureType {
	case "bbox":
		if value.BBox == nil {
			return nil, missing()
		}
		return []float64{value.BBox.Top, value.BBox.Left, value.BBox.Height, value.BBox.Width}, nil
	case "polygon":
		if len(value.Polygon) == 0 {
			return nil, missing()
		}
		return pointPairs(value.Polygon), nil
	case "line":
		if len(value.Line) == 0 {
			return nil, missing()
		}
		return pointPairs(value.Line), nil
	case "point":
		if value.Point == nil {
			return nil, missing()
		}
		return []float64{value.Point.X, value.Point.Y}, nil
	case "named-entity":
		if value.Entity == nil {
			return nil, missing()
		}
		return []int{value.Entity.Start, value.Entity.End}, nil
	case "mask":
		mask := value.Mask
		switch {
		case mask == nil:
			return nil, missing()
		case mask.URL != "":
			return []any{mask.URL, []int{mask.ColorRGB[0], mask.ColorRGB[1], mask.ColorRGB[2]}}, nil
		case len(mask.PNG) > 0:
			return base64.StdEncoding.EncodeToString(mask.PNG), nil
		case len(mask.Bitmap) > 0:
			return mask.Bitmap, nil
		default:
			return nil, missing()
		}
	default:
		return nil, services.Wrap(services.ErrConfiguration, "export", "cells",
			fmt.Sprintf("unsupported geometry type %q", featureType), nil)
	}
}

func pointPairs(points []annotate.Point) [][]float64 {
	pairs := make([][]float64, len(points))
	for i, point := range points {
		pairs[i] = []float64{point.X, point.Y}
	}
	return pairs
}

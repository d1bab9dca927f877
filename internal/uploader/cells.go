package uploader

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"labelsheet/internal/annotate"
	"labelsheet/internal/masks"
	"labelsheet/internal/namepath"
	"labelsheet/internal/services"
)

// ParseCell decodes one annotation or prediction cell into its instances.
// Tool cells hold a JSON array of instances, each an array of geometry
// payload, optional nested name-path list, and optional trailing confidence:
//
//	bbox          [[top,left,height,width], [paths...], confidence?]
//	polygon/line  [[[x,y], ...], [paths...], confidence?]
//	point         [[x,y], [paths...], confidence?]
//	named-entity  [[start,end], [paths...], confidence?]
//	mask          [["url",[r,g,b]] | [[pixel-rows]] | "base64", [paths...], confidence?]
//
// Classification cells hold a JSON array of name-path strings with an
// optional trailing confidence. Empty cells and the spreadsheet "nan" marker
// yield no instances.
func ParseCell(featureType string, raw any, codec namepath.Codec) ([]annotate.Value, error) {
	decoded, ok, err := decodeCell(raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	featureType = strings.TrimPrefix(featureType, "geo_")
	switch featureType {
	case "radio", "checklist", "text":
		value, err := parseClassificationCell(decoded)
		if err != nil {
			return nil, err
		}
		if len(value.Paths) == 0 {
			return nil, nil
		}
		return []annotate.Value{value}, nil
	case "bbox", "polygon", "line", "point", "mask", "named-entity":
		list, ok := decoded.([]any)
		if !ok {
			return nil, cellError(featureType, "cell must be a JSON array of instances")
		}
		values := make([]annotate.Value, 0, len(list))
		for i, instance := range list {
			tuple, ok := instance.([]any)
			if !ok {
				return nil, cellError(featureType, fmt.Sprintf("instance %d is not an array", i+1))
			}
			value, err := parseInstance(featureType, tuple)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "plan", "cells",
			fmt.Sprintf("unsupported annotation type %q", featureType), nil)
	}
}

// decodeCell unwraps a raw cell value, JSON-decoding strings. The boolean is
// false for empty cells.
func decodeCell(raw any) (any, bool, error) {
	switch v := raw.(type) {
	case nil:
		return nil, false, nil
	case string:
		text := strings.TrimSpace(v)
		if text == "" || strings.EqualFold(text, "nan") {
			return nil, false, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil, false, services.Wrap(services.ErrValidation, "plan", "cells", "cell is not valid JSON", err)
		}
		return decoded, true, nil
	default:
		return raw, true, nil
	}
}

// parseClassificationCell reads a list of name-path strings with an optional
// trailing confidence number. A bare string is treated as a single path.
func parseClassificationCell(decoded any) (annotate.Value, error) {
	if path, ok := decoded.(string); ok {
		return annotate.Value{Paths: []string{path}}, nil
	}
	list, ok := decoded.([]any)
	if !ok {
		return annotate.Value{}, cellError("classification", "cell must be a JSON array of name paths")
	}

	var value annotate.Value
	for i, element := range list {
		switch v := element.(type) {
		case string:
			value.Paths = append(value.Paths, v)
		case float64:
			if i != len(list)-1 {
				return annotate.Value{}, cellError("classification", "confidence must be the final element")
			}
			confidence := v
			value.Confidence = &confidence
		default:
			return annotate.Value{}, cellError("classification", fmt.Sprintf("element %d is neither a path nor a confidence", i+1))
		}
	}
	return value, nil
}

func parseInstance(featureType string, tuple []any) (annotate.Value, error) {
	if len(tuple) == 0 {
		return annotate.Value{}, cellError(featureType, "instance is empty")
	}

	var value annotate.Value
	switch featureType {
	case "bbox":
		nums, err := toFloats(tuple[0], 4)
		if err != nil {
			return annotate.Value{}, cellError(featureType, err.Error())
		}
		value.BBox = &annotate.BBox{Top: nums[0], Left: nums[1], Height: nums[2], Width: nums[3]}
	case "polygon":
		points, err := toPoints(tuple[0])
		if err != nil {
			return annotate.Value{}, cellError(featureType, err.Error())
		}
		value.Polygon = points
	case "line":
		points, err := toPoints(tuple[0])
		if err != nil {
			return annotate.Value{}, cellError(featureType, err.Error())
		}
		value.Line = points
	case "point":
		nums, err := toFloats(tuple[0], 2)
		if err != nil {
			return annotate.Value{}, cellError(featureType, err.Error())
		}
		value.Point = &annotate.Point{X: nums[0], Y: nums[1]}
	case "named-entity":
		nums, err := toFloats(tuple[0], 2)
		if err != nil {
			return annotate.Value{}, cellError(featureType, err.Error())
		}
		value.Entity = &annotate.Span{Start: int(nums[0]), End: int(nums[1])}
	case "mask":
		source, err := parseMaskSource(tuple[0])
		if err != nil {
			return annotate.Value{}, err
		}
		value.Mask = source
	}

	rest := tuple[1:]
	if len(rest) > 0 {
		if paths, ok := toStrings(rest[0]); ok {
			value.Paths = paths
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		confidence, ok := rest[0].(float64)
		if !ok {
			return annotate.Value{}, cellError(featureType, "trailing element is not a confidence number")
		}
		value.Confidence = &confidence
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return annotate.Value{}, cellError(featureType, "instance has unexpected trailing elements")
	}
	return value, nil
}

// parseMaskSource accepts a ["url",[r,g,b]] pair, a bare URL string, a 2-D
// pixel array, or a base64 PNG string. Which field the encoder reads is
// decided by the configured mask method.
func parseMaskSource(geometry any) (*annotate.MaskSource, error) {
	switch g := geometry.(type) {
	case string:
		if strings.HasPrefix(g, "http://") || strings.HasPrefix(g, "https://") {
			return &annotate.MaskSource{URL: g, ColorRGB: [3]int{255, 255, 255}}, nil
		}
		data, err := base64.StdEncoding.DecodeString(g)
		if err != nil {
			return nil, cellError("mask", "mask string is neither a URL nor base64 PNG data")
		}
		return &annotate.MaskSource{PNG: data}, nil
	case []any:
		if len(g) == 2 {
			if url, ok := g[0].(string); ok {
				rgb, err := toFloats(g[1], 3)
				if err != nil {
					return nil, cellError("mask", "mask color must be an [r,g,b] triple")
				}
				return &annotate.MaskSource{
					URL:      url,
					ColorRGB: [3]int{int(rgb[0]), int(rgb[1]), int(rgb[2])},
				}, nil
			}
		}
		bitmap, err := masks.FromAny(geometry)
		if err != nil {
			return nil, err
		}
		return &annotate.MaskSource{Bitmap: bitmap}, nil
	default:
		return nil, cellError("mask", fmt.Sprintf("unsupported mask payload of type %T", geometry))
	}
}

func cellError(featureType, message string) error {
	return services.Wrap(services.ErrValidation, "plan", "cells",
		fmt.Sprintf("%s: %s", featureType, message), nil)
}

// toFloats reads a numeric JSON array of exactly want elements.
func toFloats(value any, want int) ([]float64, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("geometry payload is not an array")
	}
	if len(list) != want {
		return nil, fmt.Errorf("geometry payload has %d elements, expected %d", len(list), want)
	}
	nums := make([]float64, len(list))
	for i, element := range list {
		num, ok := element.(float64)
		if !ok {
			return nil, fmt.Errorf("geometry element %d is not a number", i+1)
		}
		nums[i] = num
	}
	return nums, nil
}

// toPoints reads an ordered [[x,y], ...] coordinate sequence.
func toPoints(value any) ([]annotate.Point, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("coordinate payload is not an array")
	}
	points := make([]annotate.Point, 0, len(list))
	for i, element := range list {
		pair, err := toFloats(element, 2)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %v", i+1, err)
		}
		points = append(points, annotate.Point{X: pair[0], Y: pair[1]})
	}
	return points, nil
}

// toStrings reads a JSON array of strings; ok is false when the value has a
// different shape.
func toStrings(value any) ([]string, bool) {
	list, ok := value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, element := range list {
		text, ok := element.(string)
		if !ok {
			return nil, false
		}
		out = append(out, text)
	}
	return out, true
}

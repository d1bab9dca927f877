package coco

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"labelsheet/internal/annotate"
	"labelsheet/internal/masks"
	"labelsheet/internal/namepath"
	"labelsheet/internal/ontology"
	"labelsheet/internal/services"
)

const defaultWorkers = 8

// Item is one decoded tool instance queued for conversion.
type Item struct {
	// ImageID is the data row id the instance was labeled on.
	ImageID string
	// Feature is the top-level tool name.
	Feature string
	// Value is the decoded geometry plus nested classification paths.
	Value annotate.Value
}

// Converter turns decoded tool instances into COCO annotations. Category ids
// are the ontology's encoded values; when an instance carries nested
// classification answers, the first answer's encoded value takes precedence
// over the tool's own.
type Converter struct {
	index      *ontology.Index
	codec      namepath.Codec
	downloader *masks.Downloader
	workers    int
}

// ConverterOption customizes a Converter.
type ConverterOption func(*Converter)

// WithWorkers bounds the conversion worker pool. Default is 8.
func WithWorkers(workers int) ConverterOption {
	return func(c *Converter) {
		if workers > 0 {
			c.workers = workers
		}
	}
}

// WithDownloader overrides the mask downloader, mainly for tests.
func WithDownloader(downloader *masks.Downloader) ConverterOption {
	return func(c *Converter) {
		if downloader != nil {
			c.downloader = downloader
		}
	}
}

// NewConverter builds a Converter over an inverse-keyed index; name paths
// are how nested answers resolve to category ids.
func NewConverter(index *ontology.Index, opts ...ConverterOption) (*Converter, error) {
	if index == nil {
		return nil, services.Wrap(services.ErrConfiguration, "coco", "init", "nil ontology index", nil)
	}
	if index.Direction() != ontology.Inverse {
		return nil, services.Wrap(services.ErrConfiguration, "coco", "init", "converter requires an inverse-keyed index", nil)
	}
	c := &Converter{
		index:      index,
		codec:      index.Codec(),
		downloader: masks.NewDownloader(),
		workers:    defaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Convert converts every item with a bounded worker pool. Each worker writes
// only its own result slot. The returned annotations keep item order.
func (c *Converter) Convert(ctx context.Context, items []Item) ([]Annotation, error) {
	annotations := make([]Annotation, len(items))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)

	for i, item := range items {
		i, item := i, item
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			annotation, err := c.convertItem(ctx, item)
			if err != nil {
				return fmt.Errorf("annotation %d: %w", i+1, err)
			}
			annotations[i] = annotation
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return annotations, nil
}

// Build assembles a full dataset: converted annotations, categories sized to
// the longest line, and the caller-provided info and images.
func (c *Converter) Build(ctx context.Context, info Info, images []Image, items []Item) (*Dataset, error) {
	annotations, err := c.Convert(ctx, items)
	if err != nil {
		return nil, err
	}
	maxKeypoints := 0
	for i, annotation := range annotations {
		entry, err := c.index.Lookup(items[i].Feature)
		if err != nil {
			return nil, err
		}
		if strings.TrimPrefix(entry.Type, "geo_") == "line" && annotation.NumKeypoints > maxKeypoints {
			maxKeypoints = annotation.NumKeypoints
		}
	}
	return &Dataset{
		Info:        info,
		Licenses:    []License{{URL: "N/A", ID: 1, Name: "N/A"}},
		Images:      images,
		Annotations: annotations,
		Categories:  c.Categories(maxKeypoints),
	}, nil
}

func (c *Converter) convertItem(ctx context.Context, item Item) (Annotation, error) {
	entry, err := c.index.Lookup(item.Feature)
	if err != nil {
		return Annotation{}, err
	}
	categoryID := c.categoryID(entry, item.Value.Paths)

	switch strings.TrimPrefix(entry.Type, "geo_") {
	case "bbox":
		if item.Value.BBox == nil {
			return Annotation{}, c.missingGeometry(item.Feature, "bbox")
		}
		box := item.Value.BBox
		return Annotation{
			ImageID:    item.ImageID,
			CategoryID: categoryID,
			BBox:       []float64{box.Left, box.Top, box.Width, box.Height},
		}, nil

	case "line":
		if len(item.Value.Line) == 0 {
			return Annotation{}, c.missingGeometry(item.Feature, "line")
		}
		keypoints := make([]float64, 0, len(item.Value.Line)*3)
		for _, point := range item.Value.Line {
			keypoints = append(keypoints, point.X, point.Y, 2)
		}
		return Annotation{
			ImageID:      item.ImageID,
			CategoryID:   categoryID,
			Keypoints:    keypoints,
			NumKeypoints: len(item.Value.Line),
		}, nil

	case "point":
		if item.Value.Point == nil {
			return Annotation{}, c.missingGeometry(item.Feature, "point")
		}
		return Annotation{
			ImageID:      item.ImageID,
			CategoryID:   categoryID,
			Keypoints:    []float64{item.Value.Point.X, item.Value.Point.Y, 2},
			NumKeypoints: 1,
		}, nil

	case "polygon":
		if len(item.Value.Polygon) == 0 {
			return Annotation{}, c.missingGeometry(item.Feature, "polygon")
		}
		return c.polygonAnnotation(item.ImageID, categoryID, item.Value.Polygon), nil

	case "mask":
		return c.maskAnnotation(ctx, item, categoryID)

	default:
		return Annotation{}, services.Wrap(services.ErrConfiguration, "coco", item.Feature,
			fmt.Sprintf("no COCO conversion for tool type %q", entry.Type), nil)
	}
}

// categoryID prefers the first nested classification answer's encoded value
// over the tool's own. Paths whose leaf is not an ontology node (literal
// text answers) keep the tool category.
func (c *Converter) categoryID(tool ontology.Entry, paths []string) int {
	for _, path := range paths {
		entry, err := c.index.Lookup(c.codec.Join(tool.NamePath, path))
		if err != nil {
			continue
		}
		if entry.Kind == ontology.KindBranchOption || entry.Kind == ontology.KindLeafOption {
			return entry.EncodedValue
		}
	}
	return tool.EncodedValue
}

func (c *Converter) polygonAnnotation(imageID string, categoryID int, points []annotate.Point) Annotation {
	segmentation := make([]float64, 0, len(points)*2)
	for _, point := range points {
		segmentation = append(segmentation, point.X, point.Y)
	}
	minX, minY, maxX, maxY := bounds(points)
	iscrowd := 0
	return Annotation{
		ImageID:      imageID,
		CategoryID:   categoryID,
		Segmentation: [][]float64{segmentation},
		BBox:         []float64{minX, minY, maxX - minX, maxY - minY},
		Area:         shoelaceArea(points),
		IsCrowd:      &iscrowd,
	}
}

// maskAnnotation reduces a mask to the bounding outline of its nonzero
// pixels, with the pixel count as the area.
func (c *Converter) maskAnnotation(ctx context.Context, item Item, categoryID int) (Annotation, error) {
	source := item.Value.Mask
	if source == nil {
		return Annotation{}, c.missingGeometry(item.Feature, "mask")
	}

	var bitmap masks.Bitmap
	var err error
	switch {
	case len(source.Bitmap) > 0:
		bitmap = source.Bitmap
	case len(source.PNG) > 0:
		bitmap, err = masks.DecodeImage(source.PNG)
	case source.URL != "":
		bitmap, err = c.downloader.Fetch(ctx, source.URL)
	default:
		return Annotation{}, c.missingGeometry(item.Feature, "mask")
	}
	if err != nil {
		return Annotation{}, err
	}

	minX, minY, maxX, maxY := -1, -1, -1, -1
	area := 0
	for y, row := range bitmap {
		for x, pixel := range row {
			if pixel == 0 {
				continue
			}
			area++
			if minX == -1 || x < minX {
				minX = x
			}
			if minY == -1 || y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if area == 0 {
		return Annotation{}, services.Wrap(services.ErrValidation, "coco", item.Feature, "mask has no set pixels", nil)
	}

	x0, y0 := float64(minX), float64(minY)
	x1, y1 := float64(maxX), float64(maxY)
	iscrowd := 0
	return Annotation{
		ImageID:      item.ImageID,
		CategoryID:   categoryID,
		Segmentation: [][]float64{{x0, y0, x1, y0, x1, y1, x0, y1}},
		BBox:         []float64{x0, y0, x1 - x0, y1 - y0},
		Area:         float64(area),
		IsCrowd:      &iscrowd,
	}, nil
}

// Categories renders every tool and every tool-nested answer option as a
// COCO category, in ontology traversal order. maxLineKeypoints sizes the
// keypoint skeleton on line categories.
func (c *Converter) Categories(maxLineKeypoints int) []Category {
	detailed := c.index.Detailed()
	var categories []Category
	for _, key := range c.index.Keys() {
		entry := detailed[key]
		switch {
		case entry.Kind == ontology.KindTool && strings.TrimPrefix(entry.Type, "geo_") == "line":
			keypoints := make([]string, 0, maxLineKeypoints)
			skeleton := make([][2]int, 0, maxLineKeypoints)
			for i := 0; i < maxLineKeypoints; i++ {
				keypoints = append(keypoints, fmt.Sprintf("line_%d", i+1))
				skeleton = append(skeleton, [2]int{i, i + 1})
			}
			categories = append(categories, Category{
				Supercategory: entry.Name,
				ID:            entry.EncodedValue,
				Name:          entry.Name,
				Keypoints:     keypoints,
				Skeleton:      skeleton,
			})
		case entry.Kind == ontology.KindTool && strings.TrimPrefix(entry.Type, "geo_") == "point":
			categories = append(categories, Category{
				Supercategory: entry.Name,
				ID:            entry.EncodedValue,
				Name:          entry.Name,
				Keypoints:     []string{"point"},
				Skeleton:      [][2]int{{0, 0}},
			})
		case entry.Kind == ontology.KindTool:
			categories = append(categories, Category{
				Supercategory: entry.Name,
				ID:            entry.EncodedValue,
				Name:          entry.Name,
			})
		case entry.Kind == ontology.KindBranchOption || entry.Kind == ontology.KindLeafOption:
			// Answers directly beneath a tool's classification get their own
			// category, parented on the tool.
			segments := c.codec.Split(entry.NamePath)
			if len(segments) != 3 {
				continue
			}
			tool, err := c.index.Lookup(segments[0])
			if err != nil || tool.Kind != ontology.KindTool {
				continue
			}
			categories = append(categories, Category{
				Supercategory: tool.Name,
				ID:            entry.EncodedValue,
				Name:          entry.Name,
			})
		}
	}
	return categories
}

func (c *Converter) missingGeometry(name, featureType string) error {
	return services.Wrap(services.ErrValidation, "coco", name,
		fmt.Sprintf("no %s geometry on decoded value", featureType), nil)
}

// bounds returns the axis-aligned min/max of a vertex list.
func bounds(points []annotate.Point) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, point := range points {
		minX = math.Min(minX, point.X)
		minY = math.Min(minY, point.Y)
		maxX = math.Max(maxX, point.X)
		maxY = math.Max(maxY, point.Y)
	}
	return minX, minY, maxX, maxY
}

// shoelaceArea computes the enclosed area of a simple polygon.
func shoelaceArea(points []annotate.Point) float64 {
	if len(points) < 3 {
		return 0
	}
	sum := 0.0
	for i, point := range points {
		next := points[(i+1)%len(points)]
		sum += point.X*next.Y - next.X*point.Y
	}
	return math.Abs(sum) / 2
}

package annotate

import "labelsheet/internal/masks"

// BBox is an axis-aligned bounding box in pixel space.
type BBox struct {
	Top    float64
	Left   float64
	Height float64
	Width  float64
}

// Point is one vertex.
type Point struct {
	X float64
	Y float64
}

// Span is a character range for named-entity annotations.
type Span struct {
	Start int
	End   int
}

// MaskSource carries one of the three accepted mask inputs. Which field is
// read depends on the encoder's configured mask method.
type MaskSource struct {
	URL      string
	ColorRGB [3]int
	Bitmap   masks.Bitmap
	PNG      []byte
}

// Value is the flat, tabular-cell form of one annotation instance. For a
// geometry tool exactly one geometry field is set and Paths holds nested
// classification name paths rooted at the tool's immediate child
// classification names. For a classification column only Paths is set,
// rooted at the classification's own name.
type Value struct {
	BBox    *BBox
	Polygon []Point
	Line    []Point
	Point   *Point
	Mask    *MaskSource
	Entity  *Span

	Paths []string

	// Confidence is the optional trailing confidence score.
	Confidence *float64
}

// Annotation is one upload record in the platform's nested JSON shape. The
// set of keys depends on the annotated feature's type, so it stays a map
// rather than a struct.
type Annotation map[string]any

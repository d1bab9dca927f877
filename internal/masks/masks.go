package masks

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/jpeg"

	"labelsheet/internal/services"
)

// Method selects how a mask cell value is interpreted.
type Method string

const (
	// MethodURL treats the value as an accessible image URL.
	MethodURL Method = "url"
	// MethodArray treats the value as a decoded 2-D pixel array.
	MethodArray Method = "array"
	// MethodPNG treats the value as raw PNG bytes.
	MethodPNG Method = "png"
)

// Output selects the form a converted mask is returned in.
type Output string

const (
	OutputArray Output = "array"
	OutputPNG   Output = "png"
)

// ValidateMethod rejects unknown input methods with the offending value named.
func ValidateMethod(method Method) error {
	switch method {
	case MethodURL, MethodArray, MethodPNG:
		return nil
	default:
		return services.Wrap(services.ErrConfiguration, "masks", "method",
			fmt.Sprintf("mask input method must be url, array, or png, received %q", method), nil)
	}
}

// ValidateOutput rejects unknown output forms with the offending value named.
func ValidateOutput(output Output) error {
	switch output {
	case OutputArray, OutputPNG:
		return nil
	default:
		return services.Wrap(services.ErrConfiguration, "masks", "output",
			fmt.Sprintf("mask output must be array or png, received %q", output), nil)
	}
}

// Bitmap is a single-channel mask, row major. Zero means background.
type Bitmap [][]uint8

// Height reports the number of rows.
func (b Bitmap) Height() int { return len(b) }

// Width reports the number of columns in the first row.
func (b Bitmap) Width() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Validate checks that every row has the same width and the bitmap is
// non-empty.
func (b Bitmap) Validate() error {
	if b.Height() == 0 || b.Width() == 0 {
		return services.Wrap(services.ErrValidation, "masks", "bitmap", "empty mask", nil)
	}
	width := b.Width()
	for i, row := range b {
		if len(row) != width {
			return services.Wrap(services.ErrValidation, "masks", "bitmap",
				fmt.Sprintf("row %d has width %d, expected %d", i, len(row), width), nil)
		}
	}
	return nil
}

// EncodePNG renders the bitmap as grayscale PNG bytes. Any non-zero pixel is
// written as full intensity.
func EncodePNG(b Bitmap) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	img := image.NewGray(image.Rect(0, 0, b.Width(), b.Height()))
	for y, row := range b {
		for x, value := range row {
			if value != 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, services.Wrap(services.ErrValidation, "masks", "encode", "encode PNG", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage extracts the first channel of an encoded image as a bitmap.
func DecodeImage(data []byte) (Bitmap, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "masks", "decode", "decode mask image", err)
	}
	bounds := img.Bounds()
	bitmap := make(Bitmap, bounds.Dy())
	for y := range bitmap {
		row := make([]uint8, bounds.Dx())
		for x := range row {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			row[x] = uint8(r >> 8)
		}
		bitmap[y] = row
	}
	return bitmap, nil
}

// FromAny coerces a decoded JSON pixel array into a Bitmap. Accepts nested
// slices of numbers; anything else is a validation error.
func FromAny(value any) (Bitmap, error) {
	switch v := value.(type) {
	case Bitmap:
		return v, v.Validate()
	case [][]uint8:
		bitmap := Bitmap(v)
		return bitmap, bitmap.Validate()
	case []any:
		bitmap := make(Bitmap, len(v))
		for i, rawRow := range v {
			row, ok := rawRow.([]any)
			if !ok {
				return nil, services.Wrap(services.ErrValidation, "masks", "coerce",
					fmt.Sprintf("mask row %d is %T, expected an array", i, rawRow), nil)
			}
			pixels := make([]uint8, len(row))
			for j, rawPixel := range row {
				pixel, err := coercePixel(rawPixel)
				if err != nil {
					return nil, services.Wrap(services.ErrValidation, "masks", "coerce",
						fmt.Sprintf("mask pixel [%d][%d]", i, j), err)
				}
				pixels[j] = pixel
			}
			bitmap[i] = pixels
		}
		return bitmap, bitmap.Validate()
	default:
		return nil, services.Wrap(services.ErrValidation, "masks", "coerce",
			fmt.Sprintf("mask value is %T, expected a 2-D array", value), nil)
	}
}

func coercePixel(value any) (uint8, error) {
	switch v := value.(type) {
	case float64:
		if v != 0 {
			return 255, nil
		}
		return 0, nil
	case int:
		if v != 0 {
			return 255, nil
		}
		return 0, nil
	case bool:
		if v {
			return 255, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported pixel type %T", value)
	}
}

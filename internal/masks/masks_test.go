package masks

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"labelsheet/internal/services"
)

func TestValidateMethod(t *testing.T) {
	for _, method := range []Method{MethodURL, MethodArray, MethodPNG} {
		if err := ValidateMethod(method); err != nil {
			t.Fatalf("ValidateMethod(%s) = %v", method, err)
		}
	}
	err := ValidateMethod("tiff")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateOutput(t *testing.T) {
	if err := ValidateOutput(OutputPNG); err != nil {
		t.Fatalf("ValidateOutput(png) = %v", err)
	}
	if err := ValidateOutput("jpeg"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bitmap := Bitmap{
		{0, 255, 0},
		{255, 255, 0},
	}
	data, err := EncodePNG(bitmap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Width() != 3 || decoded.Height() != 2 {
		t.Fatalf("decoded shape %dx%d", decoded.Width(), decoded.Height())
	}
	for y := range bitmap {
		for x := range bitmap[y] {
			if (bitmap[y][x] != 0) != (decoded[y][x] != 0) {
				t.Fatalf("pixel (%d,%d) mismatch: %d vs %d", x, y, bitmap[y][x], decoded[y][x])
			}
		}
	}
}

func TestEncodeRejectsRaggedBitmap(t *testing.T) {
	_, err := EncodePNG(Bitmap{{0, 1}, {0}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFromAnyCoercesDecodedJSON(t *testing.T) {
	value := []any{
		[]any{float64(0), float64(1)},
		[]any{float64(1), float64(0)},
	}
	bitmap, err := FromAny(value)
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	if bitmap[0][1] != 255 || bitmap[1][0] != 255 {
		t.Fatalf("bitmap = %v", bitmap)
	}
	if bitmap[0][0] != 0 {
		t.Fatalf("background pixel should be 0, got %d", bitmap[0][0])
	}
}

func TestFromAnyRejectsScalars(t *testing.T) {
	_, err := FromAny("not a mask")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDownloaderFetch(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(1, 0, color.Gray{Y: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	downloader := NewDownloader(WithHTTPClient(server.Client()))
	bitmap, err := downloader.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if bitmap[0][0] != 0 || bitmap[0][1] == 0 {
		t.Fatalf("bitmap = %v", bitmap)
	}
}

func TestDownloaderFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	downloader := NewDownloader(WithHTTPClient(server.Client()))
	_, err := downloader.Fetch(context.Background(), server.URL)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

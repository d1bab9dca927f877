package annotate_test

import (
	"errors"
	"reflect"
	"testing"

	"labelsheet/internal/annotate"
	"labelsheet/internal/masks"
	"labelsheet/internal/ontology"
	"labelsheet/internal/services"
)

func newEncoder(t *testing.T, opts ...annotate.EncoderOption) *annotate.Encoder {
	t.Helper()
	encoder, err := annotate.NewEncoder(buildIndex(t, ontology.Inverse), opts...)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	return encoder
}

func TestEncodeBBoxWithNestedRadio(t *testing.T) {
	encoder := newEncoder(t)

	record, err := encoder.Encode("row-1", "car", annotate.Value{
		BBox:  &annotate.BBox{Top: 10, Left: 20, Height: 30, Width: 40},
		Paths: []string{"damaged///yes"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if record["uuid"] == "" {
		t.Fatal("missing uuid")
	}
	if record["name"] != "car" {
		t.Fatalf("name = %v", record["name"])
	}
	wantBBox := map[string]any{"top": 10.0, "left": 20.0, "height": 30.0, "width": 40.0}
	if !reflect.DeepEqual(record["bbox"], wantBBox) {
		t.Fatalf("bbox = %v", record["bbox"])
	}
	wantDataRow := map[string]any{"id": "row-1"}
	if !reflect.DeepEqual(record["dataRow"], wantDataRow) {
		t.Fatalf("dataRow = %v", record["dataRow"])
	}

	classifications, ok := record["classifications"].([]annotate.Annotation)
	if !ok || len(classifications) != 1 {
		t.Fatalf("classifications = %v", record["classifications"])
	}
	node := classifications[0]
	if node["name"] != "damaged" {
		t.Fatalf("classification name = %v", node["name"])
	}
	answer, ok := node["answer"].(annotate.Annotation)
	if !ok || answer["name"] != "yes" {
		t.Fatalf("answer = %v", node["answer"])
	}
	if _, present := answer["classifications"]; present {
		t.Fatalf("leaf answer should omit classifications: %v", answer)
	}
}

func TestEncodeDeeplyNestedRadio(t *testing.T) {
	encoder := newEncoder(t)

	record, err := encoder.Encode("", "car", annotate.Value{
		BBox:  &annotate.BBox{Top: 1, Left: 2, Height: 3, Width: 4},
		Paths: []string{"damaged///yes///severity///major"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	answer := record["classifications"].([]annotate.Annotation)[0]["answer"].(annotate.Annotation)
	nested, ok := answer["classifications"].([]annotate.Annotation)
	if !ok || len(nested) != 1 {
		t.Fatalf("nested classifications = %v", answer["classifications"])
	}
	severity := nested[0]
	if severity["name"] != "severity" {
		t.Fatalf("severity name = %v", severity["name"])
	}
	if severity["answer"].(annotate.Annotation)["name"] != "major" {
		t.Fatalf("severity answer = %v", severity["answer"])
	}
}

func TestEncodeTextClassification(t *testing.T) {
	encoder := newEncoder(t)

	record, err := encoder.Encode("", "comment", annotate.Value{
		Paths: []string{"comment///hello world"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if record["name"] != "comment" {
		t.Fatalf("name = %v", record["name"])
	}
	if record["answer"] != "hello world" {
		t.Fatalf("answer = %v", record["answer"])
	}
}

func TestEncodeChecklistMultiplicity(t *testing.T) {
	encoder := newEncoder(t)

	record, err := encoder.Encode("", "color", annotate.Value{
		Paths: []string{"color///red", "color///blue"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, present := record["answer"]; present {
		t.Fatalf("checklist must not emit singular answer: %v", record)
	}
	answers, ok := record["answers"].([]annotate.Annotation)
	if !ok || len(answers) != 2 {
		t.Fatalf("answers = %v", record["answers"])
	}
	// Insertion order is preserved.
	if answers[0]["name"] != "red" || answers[1]["name"] != "blue" {
		t.Fatalf("answers = %v", answers)
	}
}

func TestEncodeRadioExclusivity(t *testing.T) {
	encoder := newEncoder(t)

	record, err := encoder.Encode("", "car", annotate.Value{
		BBox:  &annotate.BBox{Top: 1, Left: 1, Height: 1, Width: 1},
		Paths: []string{"damaged///yes", "damaged///no"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	node := record["classifications"].([]annotate.Annotation)[0]
	if _, present := node["answers"]; present {
		t.Fatalf("radio must not emit answers list: %v", node)
	}
	if node["answer"].(annotate.Annotation)["name"] != "yes" {
		t.Fatalf("radio should keep the first answer only: %v", node["answer"])
	}
}

func TestEncodeMissingIndexEntry(t *testing.T) {
	encoder := newEncoder(t)

	_, err := encoder.Encode("", "bicycle", annotate.Value{
		BBox: &annotate.BBox{Top: 1, Left: 1, Height: 1, Width: 1},
	})
	if !errors.Is(err, services.ErrLookup) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestEncodeLineAndPoint(t *testing.T) {
	encoder := newEncoder(t)

	record, err := encoder.Encode("", "route", annotate.Value{
		Line: []annotate.Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
	})
	if err != nil {
		t.Fatalf("encode line: %v", err)
	}
	line := record["line"].([]map[string]any)
	if len(line) != 2 {
		t.Fatalf("line = %v", line)
	}
	if line[0]["x"] != 1.0 || line[0]["y"] != 2.0 || line[1]["x"] != 3.0 || line[1]["y"] != 4.0 {
		t.Fatalf("line vertices = %v", line)
	}

	record, err = encoder.Encode("", "marker", annotate.Value{
		Point: &annotate.Point{X: 7, Y: 8},
	})
	if err != nil {
		t.Fatalf("encode point: %v", err)
	}
	want := map[string]any{"x": 7.0, "y": 8.0}
	if !reflect.DeepEqual(record["point"], want) {
		t.Fatalf("point = %v", record["point"])
	}
}

func TestEncodeNamedEntity(t *testing.T) {
	encoder := newEncoder(t)

	record, err := encoder.Encode("", "mention", annotate.Value{
		Entity: &annotate.Span{Start: 5, End: 12},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := map[string]any{"start": 5, "end": 12}
	if !reflect.DeepEqual(record["location"], want) {
		t.Fatalf("location = %v", record["location"])
	}
}

func TestEncodeMaskByURL(t *testing.T) {
	encoder := newEncoder(t)

	record, err := encoder.Encode("", "road", annotate.Value{
		Mask: &annotate.MaskSource{URL: "https://example.test/mask.png", ColorRGB: [3]int{255, 0, 0}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	mask := record["mask"].(map[string]any)
	if mask["instanceURI"] != "https://example.test/mask.png" {
		t.Fatalf("mask = %v", mask)
	}
	if !reflect.DeepEqual(mask["colorRGB"], []int{255, 0, 0}) {
		t.Fatalf("colorRGB = %v", mask["colorRGB"])
	}
}

func TestEncodeMaskByArray(t *testing.T) {
	encoder := newEncoder(t, annotate.WithMaskMethod(masks.MethodArray))

	record, err := encoder.Encode("", "road", annotate.Value{
		Mask: &annotate.MaskSource{Bitmap: masks.Bitmap{{0, 255}, {255, 0}}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	mask := record["mask"].(map[string]any)
	data, ok := mask["png"].([]byte)
	if !ok || len(data) == 0 {
		t.Fatalf("png bytes = %v", mask["png"])
	}
	bitmap, err := masks.DecodeImage(data)
	if err != nil {
		t.Fatalf("decode rendered png: %v", err)
	}
	if bitmap[0][1] == 0 || bitmap[0][0] != 0 {
		t.Fatalf("bitmap = %v", bitmap)
	}
}

func TestEncodeConfidence(t *testing.T) {
	confidence := 0.87

	encoder := newEncoder(t)
	record, err := encoder.Encode("", "comment", annotate.Value{
		Paths:      []string{"comment///ok"},
		Confidence: &confidence,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if record["confidence"] != 0.87 {
		t.Fatalf("confidence = %v", record["confidence"])
	}

	encoder = newEncoder(t, annotate.WithConfidence(true))
	record, err = encoder.Encode("", "comment", annotate.Value{
		Paths: []string{"comment///ok"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if record["confidence"] != 0.0 {
		t.Fatalf("confidence should default to zero, got %v", record["confidence"])
	}

	encoder = newEncoder(t)
	record, err = encoder.Encode("", "comment", annotate.Value{
		Paths: []string{"comment///ok"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := record["confidence"]; ok {
		t.Fatalf("confidence attached without a source value: %v", record["confidence"])
	}
}

func TestEncodeAllFreshUUIDs(t *testing.T) {
	encoder := newEncoder(t)

	records, err := encoder.EncodeAll("row-1", "color", []annotate.Value{
		{Paths: []string{"color///red"}},
		{Paths: []string{"color///blue"}},
	})
	if err != nil {
		t.Fatalf("encode all: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0]["uuid"] == records[1]["uuid"] {
		t.Fatalf("uuids must be fresh per record: %v", records[0]["uuid"])
	}
}

func TestEncoderRejectsForwardIndex(t *testing.T) {
	_, err := annotate.NewEncoder(buildIndex(t, ontology.Forward))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

package uploader_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"labelsheet/internal/annotate"
	"labelsheet/internal/config"
	"labelsheet/internal/journal"
	"labelsheet/internal/metadata"
	"labelsheet/internal/platform"
	"labelsheet/internal/services"
	"labelsheet/internal/table"
	"labelsheet/internal/testsupport"
	"labelsheet/internal/uploader"
)

type fakeImport struct {
	projectID string
	name      string
	method    string
	records   []annotate.Annotation
}

type fakeBatch struct {
	projectID  string
	name       string
	dataRowIDs []string
	priority   int
}

// fakeAPI records every orchestrator call and serves canned responses.
type fakeAPI struct {
	mu sync.Mutex

	checkReports []platform.GlobalKeyReport
	checkedKeys  [][]string
	cleared      [][]string

	createdRows map[string][]platform.DataRow

	batches []fakeBatch

	imports     []fakeImport
	failImports map[int]string

	predictions  []fakeImport
	modelRunRows map[string][][]string
	groundTruth  [][2]string

	failedJobs map[string]platform.JobStatus

	ontologyCalls int

	fields []metadata.Field
	jobSeq int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		createdRows:  make(map[string][]platform.DataRow),
		failImports:  make(map[int]string),
		modelRunRows: make(map[string][][]string),
		failedJobs:   make(map[string]platform.JobStatus),
	}
}

func (f *fakeAPI) nextJob() platform.Job {
	f.jobSeq++
	return platform.Job{ID: fmt.Sprintf("job-%d", f.jobSeq)}
}

func (f *fakeAPI) CheckGlobalKeys(_ context.Context, keys []string) (platform.GlobalKeyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkedKeys = append(f.checkedKeys, append([]string(nil), keys...))
	if len(f.checkReports) == 0 {
		return platform.GlobalKeyReport{Fetched: make([]string, len(keys))}, nil
	}
	report := f.checkReports[0]
	f.checkReports = f.checkReports[1:]
	return report, nil
}

func (f *fakeAPI) ClearGlobalKeys(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, append([]string(nil), keys...))
	return nil
}

func (f *fakeAPI) DataRowIDsForGlobalKeys(_ context.Context, keys []string) ([]string, error) {
	ids := make([]string, len(keys))
	for i, key := range keys {
		ids[i] = "dr-" + key
	}
	return ids, nil
}

func (f *fakeAPI) CreateDataRows(_ context.Context, datasetID string, rows []platform.DataRow) (platform.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdRows[datasetID] = append(f.createdRows[datasetID], rows...)
	return f.nextJob(), nil
}

func (f *fakeAPI) CreateBatch(_ context.Context, projectID, name string, dataRowIDs []string, priority int) (platform.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, fakeBatch{projectID, name, append([]string(nil), dataRowIDs...), priority})
	return platform.Batch{ID: name, Name: name, Size: len(dataRowIDs), Priority: priority}, nil
}

func (f *fakeAPI) ImportAnnotations(_ context.Context, projectID, importName, method string, records []annotate.Annotation) (platform.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, fakeImport{projectID, importName, method, records})
	job := f.nextJob()
	if message, ok := f.failImports[len(f.imports)]; ok {
		f.failedJobs[job.ID] = platform.JobStatus{
			ID:     job.ID,
			State:  platform.JobStateFailed,
			Errors: []platform.JobError{{Message: message}},
		}
	}
	return job, nil
}

func (f *fakeAPI) AddPredictions(_ context.Context, modelRunID string, records []annotate.Annotation) (platform.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictions = append(f.predictions, fakeImport{projectID: modelRunID, records: records})
	return f.nextJob(), nil
}

func (f *fakeAPI) UpsertModelRunDataRows(_ context.Context, modelRunID string, dataRowIDs []string) (platform.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modelRunRows[modelRunID] = append(f.modelRunRows[modelRunID], append([]string(nil), dataRowIDs...))
	return f.nextJob(), nil
}

func (f *fakeAPI) UpsertGroundTruth(_ context.Context, modelRunID, projectID string) (platform.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groundTruth = append(f.groundTruth, [2]string{modelRunID, projectID})
	return f.nextJob(), nil
}

func (f *fakeAPI) WaitForJob(_ context.Context, jobID string) (platform.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.failedJobs[jobID]; ok {
		return status, nil
	}
	return platform.JobStatus{ID: jobID, State: platform.JobStateComplete}, nil
}

func (f *fakeAPI) Ontology(_ context.Context, _ string) (map[string]any, error) {
	f.mu.Lock()
	f.ontologyCalls++
	f.mu.Unlock()
	return map[string]any{
		"tools": []any{
			map[string]any{
				"name": "car", "tool": "rectangle", "featureSchemaId": "fs-car",
				"classifications": []any{
					map[string]any{
						"instructions": "damaged", "type": "radio", "featureSchemaId": "fs-damaged",
						"options": []any{
							map[string]any{"label": "yes", "featureSchemaId": "fs-yes"},
							map[string]any{"label": "no", "featureSchemaId": "fs-no"},
						},
					},
				},
			},
		},
		"classifications": []any{
			map[string]any{
				"instructions": "comment", "type": "text", "featureSchemaId": "fs-comment",
				"options": []any{},
			},
		},
	}, nil
}

func (f *fakeAPI) MetadataFields(_ context.Context) ([]metadata.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]metadata.Field(nil), f.fields...), nil
}

func (f *fakeAPI) CreateMetadataField(_ context.Context, name, kind string, enumOptions []string) (metadata.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	field := metadata.Field{SchemaID: "schema-" + name, Name: name, Kind: kind}
	for _, option := range enumOptions {
		field.Options = append(field.Options, metadata.Option{SchemaID: "schema-" + name + "-" + option, Label: option})
	}
	f.fields = append(f.fields, field)
	return field, nil
}

func newTestUploader(t *testing.T, api *fakeAPI, opts ...testsupport.ConfigOption) (*uploader.Uploader, *journal.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenJournal(t, cfg)
	return uploader.New(api, store, cfg, nil), store
}

func withUpload(mutate func(*config.Upload)) testsupport.ConfigOption {
	return func(cfg *config.Config) {
		mutate(&cfg.Upload)
	}
}

func newUploadTable(t *testing.T, rows ...map[string]any) *table.Memory {
	t.Helper()
	memory, err := table.NewMemory(
		"row_data", "global_key", "dataset_id", "project_id",
		"annotation///bbox///car", "annotation///text///comment",
	)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	for _, row := range rows {
		if err := memory.AppendRow(row); err != nil {
			t.Fatalf("append row: %v", err)
		}
	}
	return memory
}

func TestRunEndToEnd(t *testing.T) {
	api := newFakeAPI()
	u, store := newTestUploader(t, api)

	memory := newUploadTable(t,
		map[string]any{
			"row_data":   "https://cdn.test/1.jpg",
			"global_key": "k1",
			"dataset_id": "ds-1",
			"project_id": "proj-1",
			"annotation///bbox///car": `[[[10,20,30,40],["damaged///yes"]]]`,
			"annotation///text///comment": `["comment///hello world"]`,
		},
		map[string]any{
			"row_data":   "https://cdn.test/2.jpg",
			"global_key": "k2",
			"dataset_id": "ds-1",
			"project_id": "proj-1",
			"annotation///bbox///car": "",
			"annotation///text///comment": "",
		},
	)

	result, err := u.Run(context.Background(), memory, "run-a")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Rows != 2 || result.DataRowsCreated != 2 {
		t.Fatalf("result = %+v", result)
	}

	created := api.createdRows["ds-1"]
	if len(created) != 2 || created[0].GlobalKey != "k1" || created[1].GlobalKey != "k2" {
		t.Fatalf("created rows = %+v", created)
	}

	if len(api.batches) != 1 {
		t.Fatalf("batches = %+v", api.batches)
	}
	if !reflect.DeepEqual(api.batches[0].dataRowIDs, []string{"dr-k1", "dr-k2"}) {
		t.Fatalf("batched ids = %v", api.batches[0].dataRowIDs)
	}

	if len(api.imports) != 1 {
		t.Fatalf("imports = %d", len(api.imports))
	}
	imported := api.imports[0]
	if imported.projectID != "proj-1" || imported.method != "import" {
		t.Fatalf("import = %+v", imported)
	}
	if len(imported.records) != 2 {
		t.Fatalf("records = %d", len(imported.records))
	}

	var car annotate.Annotation
	for _, record := range imported.records {
		if record["name"] == "car" {
			car = record
		}
	}
	if car == nil {
		t.Fatalf("no car record in %v", imported.records)
	}
	bbox, ok := car["bbox"].(map[string]any)
	if !ok || bbox["top"] != 10.0 || bbox["width"] != 40.0 {
		t.Fatalf("bbox = %v", car["bbox"])
	}
	dataRow, ok := car["dataRow"].(map[string]any)
	if !ok || dataRow["id"] != "dr-k1" {
		t.Fatalf("dataRow = %v", car["dataRow"])
	}
	nested, ok := car["classifications"].([]annotate.Annotation)
	if !ok || len(nested) != 1 || nested[0]["name"] != "damaged" {
		t.Fatalf("classifications = %v", car["classifications"])
	}

	if api.ontologyCalls != 1 {
		t.Fatalf("ontology fetched %d times", api.ontologyCalls)
	}

	batches, err := store.List(context.Background(), journal.StatusCompleted)
	if err != nil {
		t.Fatalf("list journal: %v", err)
	}
	kinds := make(map[journal.Kind]int)
	for _, batch := range batches {
		kinds[batch.Kind]++
	}
	for _, kind := range []journal.Kind{journal.KindDataRows, journal.KindProjectRows, journal.KindAnnotations} {
		if kinds[kind] != 1 {
			t.Fatalf("journal kinds = %v", kinds)
		}
	}
}

func TestRunSkipsDuplicateKeys(t *testing.T) {
	api := newFakeAPI()
	api.checkReports = []platform.GlobalKeyReport{
		{Fetched: []string{"dr-existing", ""}},
	}
	u, _ := newTestUploader(t, api)

	memory := newUploadTable(t,
		map[string]any{
			"row_data": "https://cdn.test/1.jpg", "global_key": "k1",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": `[[[1,2,3,4]]]`,
			"annotation///text///comment": "",
		},
		map[string]any{
			"row_data": "https://cdn.test/2.jpg", "global_key": "k2",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": "",
			"annotation///text///comment": "",
		},
	)

	result, err := u.Run(context.Background(), memory, "run-b")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.DataRowsCreated != 1 || result.DataRowsExisting != 1 {
		t.Fatalf("result = %+v", result)
	}
	created := api.createdRows["ds-1"]
	if len(created) != 1 || created[0].GlobalKey != "k2" {
		t.Fatalf("created rows = %+v", created)
	}
	// The existing row still receives annotations.
	if len(api.imports) != 1 || len(api.imports[0].records) != 1 {
		t.Fatalf("imports = %+v", api.imports)
	}
	dataRow := api.imports[0].records[0]["dataRow"].(map[string]any)
	if dataRow["id"] != "dr-k1" {
		t.Fatalf("annotation data row = %v", dataRow)
	}
}

func TestRunRenamesDuplicateKeys(t *testing.T) {
	api := newFakeAPI()
	api.checkReports = []platform.GlobalKeyReport{
		{Fetched: []string{"dr-existing", ""}},
	}
	u, _ := newTestUploader(t, api, withUpload(func(upload *config.Upload) {
		upload.SkipDuplicates = false
	}))

	memory := newUploadTable(t,
		map[string]any{
			"row_data": "https://cdn.test/1.jpg", "global_key": "k1",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": "",
			"annotation///text///comment": "",
		},
		map[string]any{
			"row_data": "https://cdn.test/2.jpg", "global_key": "k2",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": "",
			"annotation///text///comment": "",
		},
	)

	if _, err := u.Run(context.Background(), memory, "run-c"); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(api.checkedKeys) != 2 || !reflect.DeepEqual(api.checkedKeys[1], []string{"k1___1"}) {
		t.Fatalf("checked keys = %v", api.checkedKeys)
	}
	keys := make([]string, 0, 2)
	for _, row := range api.createdRows["ds-1"] {
		keys = append(keys, row.GlobalKey)
	}
	if !reflect.DeepEqual(keys, []string{"k1___1", "k2"}) {
		t.Fatalf("created keys = %v", keys)
	}
}

func TestRunClearsDeletedKeys(t *testing.T) {
	api := newFakeAPI()
	api.checkReports = []platform.GlobalKeyReport{
		{Fetched: []string{"dr-old", ""}, Deleted: []string{"k1"}},
	}
	u, _ := newTestUploader(t, api)

	memory := newUploadTable(t,
		map[string]any{
			"row_data": "https://cdn.test/1.jpg", "global_key": "k1",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": "",
			"annotation///text///comment": "",
		},
		map[string]any{
			"row_data": "https://cdn.test/2.jpg", "global_key": "k2",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": "",
			"annotation///text///comment": "",
		},
	)

	result, err := u.Run(context.Background(), memory, "run-d")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(api.cleared) != 1 || !reflect.DeepEqual(api.cleared[0], []string{"k1"}) {
		t.Fatalf("cleared = %v", api.cleared)
	}
	// A key released from a deleted row is not a duplicate; both rows are
	// created fresh.
	if result.DataRowsCreated != 2 || result.DataRowsExisting != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunHaltsAfterFailedImport(t *testing.T) {
	api := newFakeAPI()
	api.failImports[1] = "schema mismatch"
	u, store := newTestUploader(t, api, withUpload(func(upload *config.Upload) {
		upload.AnnotationBatch = 1
	}))

	memory := newUploadTable(t,
		map[string]any{
			"row_data": "https://cdn.test/1.jpg", "global_key": "k1",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": `[[[1,2,3,4]]]`,
			"annotation///text///comment": "",
		},
		map[string]any{
			"row_data": "https://cdn.test/2.jpg", "global_key": "k2",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": `[[[5,6,7,8]]]`,
			"annotation///text///comment": "",
		},
	)

	_, err := u.Run(context.Background(), memory, "run-e")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	if len(api.imports) != 1 {
		t.Fatalf("imports after failure = %d", len(api.imports))
	}

	failed, listErr := store.List(context.Background(), journal.StatusFailed)
	if listErr != nil {
		t.Fatalf("list journal: %v", listErr)
	}
	if len(failed) != 1 || failed[0].Kind != journal.KindAnnotations {
		t.Fatalf("failed batches = %+v", failed)
	}
}

func TestRunRejectsDuplicateTableKeys(t *testing.T) {
	api := newFakeAPI()
	u, _ := newTestUploader(t, api)

	memory := newUploadTable(t,
		map[string]any{
			"row_data": "https://cdn.test/1.jpg", "global_key": "k1",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": "", "annotation///text///comment": "",
		},
		map[string]any{
			"row_data": "https://cdn.test/2.jpg", "global_key": "k1",
			"dataset_id": "ds-1", "project_id": "proj-1",
			"annotation///bbox///car": "", "annotation///text///comment": "",
		},
	)

	if _, err := u.Run(context.Background(), memory, "run-f"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunRequiresDatasetForNewRows(t *testing.T) {
	api := newFakeAPI()
	u, _ := newTestUploader(t, api)

	memory := newUploadTable(t, map[string]any{
		"row_data": "https://cdn.test/1.jpg", "global_key": "k1",
		"dataset_id": "", "project_id": "proj-1",
		"annotation///bbox///car": "", "annotation///text///comment": "",
	})

	if _, err := u.Run(context.Background(), memory, "run-g"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGroundTruth(t *testing.T) {
	api := newFakeAPI()
	u, store := newTestUploader(t, api)

	if err := u.GroundTruth(context.Background(), "run-1", "proj-1"); err != nil {
		t.Fatalf("ground truth: %v", err)
	}
	if len(api.groundTruth) != 1 || api.groundTruth[0] != [2]string{"run-1", "proj-1"} {
		t.Fatalf("ground truth calls = %v", api.groundTruth)
	}
	batches, err := store.List(context.Background(), journal.StatusCompleted)
	if err != nil {
		t.Fatalf("list journal: %v", err)
	}
	if len(batches) != 1 || batches[0].Kind != journal.KindGroundTruth {
		t.Fatalf("journal = %+v", batches)
	}
}

func TestRunUploadsPredictionsAndModelRunRows(t *testing.T) {
	api := newFakeAPI()
	u, _ := newTestUploader(t, api)

	memory, err := table.NewMemory(
		"row_data", "global_key", "dataset_id", "project_id", "model_run_id",
		"prediction///bbox///car",
	)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if err := memory.AppendRow(map[string]any{
		"row_data":   "https://cdn.test/1.jpg",
		"global_key": "k1",
		"dataset_id": "ds-1",
		"project_id": "proj-1",
		"model_run_id": "mr-1",
		"prediction///bbox///car": `[[[1,2,3,4],[],0.8]]`,
	}); err != nil {
		t.Fatalf("append row: %v", err)
	}

	result, err := u.Run(context.Background(), memory, "run-h")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ModelRunRows != 1 || result.PredictionRecords != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !reflect.DeepEqual(api.modelRunRows["mr-1"], [][]string{{"dr-k1"}}) {
		t.Fatalf("model run rows = %v", api.modelRunRows)
	}
	if len(api.predictions) != 1 || len(api.predictions[0].records) != 1 {
		t.Fatalf("predictions = %+v", api.predictions)
	}
	record := api.predictions[0].records[0]
	if record["name"] != "car" {
		t.Fatalf("record = %v", record)
	}
	if record["confidence"] != 0.8 {
		t.Fatalf("confidence = %v", record["confidence"])
	}
}

package platform_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"labelsheet/internal/annotate"
	"labelsheet/internal/config"
	"labelsheet/internal/platform"
	"labelsheet/internal/services"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...platform.Option) *platform.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Platform{
		APIKey:   "test-key",
		Endpoint: server.URL,
	}
	opts = append([]platform.Option{
		platform.WithHTTPClient(server.Client()),
		platform.WithPollInterval(5 * time.Millisecond),
		platform.WithJobDeadline(time.Second),
	}, opts...)
	client, err := platform.NewClient(cfg, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := platform.NewClient(config.Platform{Endpoint: "https://api.test"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCheckGlobalKeys(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data-rows/check-global-keys" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var body struct {
			GlobalKeys []string `json:"globalKeys"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if !reflect.DeepEqual(body.GlobalKeys, []string{"k1", "k2"}) {
			t.Errorf("keys = %v", body.GlobalKeys)
		}
		_ = json.NewEncoder(w).Encode(platform.GlobalKeyReport{
			Fetched:  []string{"row-1", ""},
			NotFound: []string{"k2"},
		})
	}))

	report, err := client.CheckGlobalKeys(context.Background(), []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !reflect.DeepEqual(report.Fetched, []string{"row-1", ""}) {
		t.Fatalf("report = %+v", report)
	}
}

func TestWaitForJobPollsUntilComplete(t *testing.T) {
	var polls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := platform.JobStatus{ID: "job-1", State: platform.JobStateRunning}
		if polls.Add(1) >= 3 {
			status.State = platform.JobStateComplete
		}
		_ = json.NewEncoder(w).Encode(status)
	}))

	status, err := client.WaitForJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if status.State != platform.JobStateComplete {
		t.Fatalf("state = %s", status.State)
	}
	if polls.Load() < 3 {
		t.Fatalf("polls = %d", polls.Load())
	}
}

func TestWaitForJobDeadline(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(platform.JobStatus{ID: "job-1", State: platform.JobStateRunning})
	}), platform.WithJobDeadline(20*time.Millisecond))

	_, err := client.WaitForJob(context.Background(), "job-1")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestWaitForJobReturnsFailedState(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(platform.JobStatus{
			ID:     "job-1",
			State:  platform.JobStateFailed,
			Errors: []platform.JobError{{Message: "row rejected", GlobalKey: "k1"}},
		})
	}))

	status, err := client.WaitForJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if status.State != platform.JobStateFailed || len(status.Errors) != 1 {
		t.Fatalf("status = %+v", status)
	}
}

func TestImportAnnotationsMethodRouting(t *testing.T) {
	var lastPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(platform.Job{ID: "job-9"})
	}))

	records := []annotate.Annotation{{"uuid": "u1", "name": "car"}}

	if _, err := client.ImportAnnotations(context.Background(), "proj-1", "import-a", platform.ImportMethodMAL, records); err != nil {
		t.Fatalf("mal import: %v", err)
	}
	if lastPath != "/projects/proj-1/mal-imports" {
		t.Fatalf("path = %s", lastPath)
	}

	if _, err := client.ImportAnnotations(context.Background(), "proj-1", "import-a", platform.ImportMethodLabel, records); err != nil {
		t.Fatalf("label import: %v", err)
	}
	if lastPath != "/projects/proj-1/label-imports" {
		t.Fatalf("path = %s", lastPath)
	}

	_, err := client.ImportAnnotations(context.Background(), "proj-1", "import-a", "ndjson", records)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusForbidden, services.ErrConfiguration},
		{http.StatusBadRequest, services.ErrValidation},
		{http.StatusTooManyRequests, services.ErrTransient},
		{http.StatusBadGateway, services.ErrTransient},
	}
	for _, tc := range cases {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
		}))
		_, err := client.Job(context.Background(), "job-1")
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestExportLabels(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/projects/proj-1/export":
			_ = json.NewEncoder(w).Encode(platform.Job{ID: "job-7"})
		case "/jobs/job-7":
			_ = json.NewEncoder(w).Encode(platform.JobStatus{ID: "job-7", State: platform.JobStateComplete})
		case "/jobs/job-7/result":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"labels": []map[string]any{{"objects": []any{}}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	labels, err := client.ExportLabels(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(labels) != 1 {
		t.Fatalf("labels = %v", labels)
	}
}

func TestCreateBatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["priority"] != float64(3) {
			t.Errorf("priority = %v", body["priority"])
		}
		_ = json.NewEncoder(w).Encode(platform.Batch{ID: "batch-1", Name: body["name"].(string), Size: 2, Priority: 3})
	}))

	batch, err := client.CreateBatch(context.Background(), "proj-1", "batch-a", []string{"r1", "r2"}, 3)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if batch.ID != "batch-1" || batch.Name != "batch-a" {
		t.Fatalf("batch = %+v", batch)
	}
}

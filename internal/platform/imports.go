package platform

import (
	"context"
	"fmt"
	"net/http"

	"labelsheet/internal/annotate"
	"labelsheet/internal/services"
)

// Annotation import methods. "mal" imports non-submitted pre-labels;
// "import" imports submitted labels.
const (
	ImportMethodMAL   = "mal"
	ImportMethodLabel = "import"
)

// ImportAnnotations submits one batch of annotation records to a project and
// returns the import job handle.
func (c *Client) ImportAnnotations(ctx context.Context, projectID, importName, method string, records []annotate.Annotation) (Job, error) {
	var path string
	switch method {
	case ImportMethodMAL:
		path = "/projects/" + projectID + "/mal-imports"
	case ImportMethodLabel:
		path = "/projects/" + projectID + "/label-imports"
	default:
		return Job{}, services.Wrap(services.ErrConfiguration, "platform", "import",
			fmt.Sprintf("import method must be mal or import, received %q", method), nil)
	}

	body := map[string]any{
		"name":        importName,
		"annotations": records,
	}
	var job Job
	if err := c.do(ctx, http.MethodPost, path, body, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// UpsertModelRunDataRows attaches data rows to a model run.
func (c *Client) UpsertModelRunDataRows(ctx context.Context, modelRunID string, dataRowIDs []string) (Job, error) {
	body := map[string]any{"dataRowIds": dataRowIDs}
	var job Job
	if err := c.do(ctx, http.MethodPost, "/model-runs/"+modelRunID+"/data-rows", body, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// AddPredictions uploads prediction records to a model run.
func (c *Client) AddPredictions(ctx context.Context, modelRunID string, records []annotate.Annotation) (Job, error) {
	body := map[string]any{"predictions": records}
	var job Job
	if err := c.do(ctx, http.MethodPost, "/model-runs/"+modelRunID+"/predictions", body, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// UpsertGroundTruth promotes a project's submitted labels into a model run
// as ground truth.
func (c *Client) UpsertGroundTruth(ctx context.Context, modelRunID, projectID string) (Job, error) {
	body := map[string]any{"projectId": projectID}
	var job Job
	if err := c.do(ctx, http.MethodPost, "/model-runs/"+modelRunID+"/ground-truth", body, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

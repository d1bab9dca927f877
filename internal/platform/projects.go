package platform

import (
	"context"
	"encoding/json"
	"net/http"

	"labelsheet/internal/services"
)

// CreateBatch queues data rows to a project for labeling.
func (c *Client) CreateBatch(ctx context.Context, projectID, name string, dataRowIDs []string, priority int) (Batch, error) {
	body := map[string]any{
		"name":       name,
		"dataRowIds": dataRowIDs,
		"priority":   priority,
	}
	var batch Batch
	if err := c.do(ctx, http.MethodPost, "/projects/"+projectID+"/batches", body, &batch); err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// Ontology fetches a project's normalized ontology payload.
func (c *Client) Ontology(ctx context.Context, projectID string) (map[string]any, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID+"/ontology", nil, &raw); err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "platform", "ontology", "decode ontology payload", err)
	}
	return payload, nil
}

// ExportLabels submits a label export for a project, waits for the job, and
// returns the exported label trees.
func (c *Client) ExportLabels(ctx context.Context, projectID string) ([]map[string]any, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, "/projects/"+projectID+"/export", nil, &job); err != nil {
		return nil, err
	}
	status, err := c.WaitForJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if status.State == JobStateFailed {
		return nil, services.Wrap(services.ErrTransient, "platform", "export",
			jobErrorSummary(status.Errors), nil)
	}

	var out struct {
		Labels []map[string]any `json:"labels"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs/"+job.ID+"/result", nil, &out); err != nil {
		return nil, err
	}
	return out.Labels, nil
}

func jobErrorSummary(errors []JobError) string {
	if len(errors) == 0 {
		return "job failed without error detail"
	}
	return errors[0].Message
}

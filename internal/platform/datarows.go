package platform

import (
	"context"
	"net/http"
)

// CheckGlobalKeys asks the platform which of the given keys are already in
// use by active or deleted data rows.
func (c *Client) CheckGlobalKeys(ctx context.Context, keys []string) (GlobalKeyReport, error) {
	body := map[string]any{"globalKeys": keys}
	var report GlobalKeyReport
	if err := c.do(ctx, http.MethodPost, "/data-rows/check-global-keys", body, &report); err != nil {
		return GlobalKeyReport{}, err
	}
	return report, nil
}

// ClearGlobalKeys detaches the given keys from deleted data rows so they can
// be reused.
func (c *Client) ClearGlobalKeys(ctx context.Context, keys []string) error {
	body := map[string]any{"globalKeys": keys}
	return c.do(ctx, http.MethodPost, "/data-rows/clear-global-keys", body, nil)
}

// DataRowIDsForGlobalKeys resolves global keys to platform data row ids,
// aligned with the input order.
func (c *Client) DataRowIDsForGlobalKeys(ctx context.Context, keys []string) ([]string, error) {
	body := map[string]any{"globalKeys": keys}
	var out struct {
		DataRowIDs []string `json:"dataRowIds"`
	}
	if err := c.do(ctx, http.MethodPost, "/data-rows/resolve-global-keys", body, &out); err != nil {
		return nil, err
	}
	return out.DataRowIDs, nil
}

// CreateDataRows submits one batch of rows into a dataset and returns the
// creation job handle.
func (c *Client) CreateDataRows(ctx context.Context, datasetID string, rows []DataRow) (Job, error) {
	body := map[string]any{"dataRows": rows}
	var job Job
	if err := c.do(ctx, http.MethodPost, "/datasets/"+datasetID+"/data-rows", body, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

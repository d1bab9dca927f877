package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"labelsheet/internal/services"
)

// Job polls one job once.
func (c *Client) Job(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	if err := c.do(ctx, http.MethodGet, "/jobs/"+jobID, nil, &status); err != nil {
		return JobStatus{}, err
	}
	return status, nil
}

// WaitForJob polls a job until it reaches a terminal state or the client's
// job deadline elapses. Exhausting the deadline is a timeout error; a failed
// job is returned with its errors and no Go error so callers can surface the
// remote payload.
func (c *Client) WaitForJob(ctx context.Context, jobID string) (JobStatus, error) {
	deadline := time.Now().Add(c.jobDeadline)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.Job(ctx, jobID)
		if err != nil {
			return JobStatus{}, err
		}
		if status.Terminal() {
			return status, nil
		}
		if time.Now().After(deadline) {
			return JobStatus{}, services.Wrap(services.ErrTimeout, "platform", "jobs",
				fmt.Sprintf("job %s not finished after %v", jobID, c.jobDeadline), nil)
		}
		select {
		case <-ctx.Done():
			return JobStatus{}, services.Wrap(services.ErrTimeout, "platform", "jobs", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

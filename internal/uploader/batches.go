package uploader

import (
	"context"
	"fmt"

	"labelsheet/internal/journal"
	"labelsheet/internal/logging"
	"labelsheet/internal/platform"
)

// batchToProjects queues resolved data rows to their projects. The batch
// number runs across all projects so every journal entry gets a distinct
// name.
func (u *Uploader) batchToProjects(ctx context.Context, plan *Plan, runName string, result *Result) error {
	grouped, order := groupRows(plan, func(row *Row) string {
		if row.DataRowID == "" {
			return ""
		}
		return row.ProjectID
	})

	batchNumber := 0
	for _, projectID := range order {
		for _, batch := range chunk(grouped[projectID], u.cfg.Upload.ProjectBatchSize) {
			batchNumber++
			name := fmt.Sprintf("%s-%d", runName, batchNumber)
			ids := make([]string, len(batch))
			for i, row := range batch {
				ids[i] = row.DataRowID
			}
			err := u.runBatch(ctx, journal.KindProjectRows, projectID, name, batchNumber, len(ids), func(ctx context.Context) error {
				created, err := u.api.CreateBatch(ctx, projectID, name, ids, u.cfg.Upload.BatchPriority)
				if err != nil {
					return err
				}
				u.logger.Info("project batch created",
					logging.Args(
						logging.String(logging.FieldProjectID, projectID),
						logging.String("batch", created.Name),
						logging.Int(logging.FieldCount, len(ids)),
					)...)
				return nil
			})
			if err != nil {
				return err
			}
			result.ProjectBatches++
		}
	}
	return nil
}

// upsertModelRunRows attaches resolved data rows to their model runs in
// journaled batches.
func (u *Uploader) upsertModelRunRows(ctx context.Context, plan *Plan, runName string, result *Result) error {
	grouped, order := groupRows(plan, func(row *Row) string {
		if row.DataRowID == "" {
			return ""
		}
		return row.ModelRunID
	})

	sequence := 0
	for _, modelRunID := range order {
		for _, batch := range chunk(grouped[modelRunID], u.cfg.Upload.ModelRunBatchSize) {
			sequence++
			name := fmt.Sprintf("%s-model-run-%d", runName, sequence)
			ids := make([]string, len(batch))
			for i, row := range batch {
				ids[i] = row.DataRowID
			}
			err := u.runBatch(ctx, journal.KindModelRows, modelRunID, name, sequence, len(ids), func(ctx context.Context) error {
				job, err := u.api.UpsertModelRunDataRows(ctx, modelRunID, ids)
				if err != nil {
					return err
				}
				status, err := u.api.WaitForJob(ctx, job.ID)
				if err != nil {
					return err
				}
				if status.State == platform.JobStateFailed {
					return jobFailure("model-run-rows", status)
				}
				return nil
			})
			if err != nil {
				return err
			}
			result.ModelRunRows += len(ids)
		}
	}
	return nil
}

// groupRows partitions plan rows by the non-empty key keyOf returns,
// preserving first-seen group order and row order within each group.
func groupRows(plan *Plan, keyOf func(*Row) string) (map[string][]*Row, []string) {
	grouped := make(map[string][]*Row)
	var order []string
	for _, row := range plan.Rows {
		key := keyOf(row)
		if key == "" {
			continue
		}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], row)
	}
	return grouped, order
}

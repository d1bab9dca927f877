package uploader

import (
	"context"
	"fmt"

	"labelsheet/internal/journal"
	"labelsheet/internal/logging"
	"labelsheet/internal/platform"
	"labelsheet/internal/services"
)

// createDataRows submits every non-existing row to its dataset in journaled
// batches, waiting on each creation job before starting the next batch.
func (u *Uploader) createDataRows(ctx context.Context, plan *Plan, runName string, result *Result) error {
	grouped := make(map[string][]*Row)
	var order []string
	for _, row := range plan.Rows {
		if row.Existing {
			continue
		}
		if row.DatasetID == "" {
			return services.Wrap(services.ErrValidation, "data-rows", "plan",
				fmt.Sprintf("row %q needs creation but carries no dataset_id", row.GlobalKey), nil)
		}
		if _, ok := grouped[row.DatasetID]; !ok {
			order = append(order, row.DatasetID)
		}
		grouped[row.DatasetID] = append(grouped[row.DatasetID], row)
	}

	sequence := 0
	for _, datasetID := range order {
		for _, batch := range chunk(grouped[datasetID], u.cfg.Upload.DataRowBatchSize) {
			sequence++
			name := fmt.Sprintf("%s-data-rows-%d", runName, sequence)
			err := u.runBatch(ctx, journal.KindDataRows, datasetID, name, sequence, len(batch), func(ctx context.Context) error {
				rows := make([]platform.DataRow, len(batch))
				for i, row := range batch {
					rows[i] = platform.DataRow{
						GlobalKey:   row.GlobalKey,
						RowData:     row.RowData,
						ExternalID:  row.ExternalID,
						Metadata:    row.Metadata,
						Attachments: row.Attachments,
					}
				}
				job, err := u.api.CreateDataRows(ctx, datasetID, rows)
				if err != nil {
					return err
				}
				status, err := u.api.WaitForJob(ctx, job.ID)
				if err != nil {
					return err
				}
				if status.State == platform.JobStateFailed {
					return jobFailure("data-rows", status)
				}
				return nil
			})
			if err != nil {
				return err
			}
			result.DataRowsCreated += len(batch)
			u.logger.Info("data row batch created",
				logging.Args(
					logging.String(logging.FieldDatasetID, datasetID),
					logging.Int(logging.FieldCount, len(batch)),
				)...)
		}
	}
	return nil
}

// resolveDataRowIDs fills every row's platform data row id from its global
// key. A key that resolves to nothing after creation is a validation error.
func (u *Uploader) resolveDataRowIDs(ctx context.Context, plan *Plan) error {
	if len(plan.Rows) == 0 {
		return nil
	}
	for _, batch := range chunk(plan.Rows, u.cfg.Upload.DataRowBatchSize) {
		keys := make([]string, len(batch))
		for i, row := range batch {
			keys[i] = row.GlobalKey
		}
		ids, err := u.api.DataRowIDsForGlobalKeys(ctx, keys)
		if err != nil {
			return err
		}
		if len(ids) != len(keys) {
			return services.Wrap(services.ErrTransient, "data-rows", "resolve",
				fmt.Sprintf("resolved %d ids for %d global keys", len(ids), len(keys)), nil)
		}
		for i, row := range batch {
			if ids[i] == "" {
				return services.Wrap(services.ErrValidation, "data-rows", "resolve",
					fmt.Sprintf("global key %q did not resolve to a data row", row.GlobalKey), nil)
			}
			row.DataRowID = ids[i]
		}
	}
	return nil
}

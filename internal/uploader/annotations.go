package uploader

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"labelsheet/internal/annotate"
	"labelsheet/internal/journal"
	"labelsheet/internal/logging"
	"labelsheet/internal/masks"
	"labelsheet/internal/ontology"
	"labelsheet/internal/platform"
	"labelsheet/internal/services"
)

// encoderFor returns the annotation encoder for one project, fetching and
// indexing the project ontology on first use.
func (u *Uploader) encoderFor(ctx context.Context, projectID string) (*annotate.Encoder, error) {
	if encoder, ok := u.encoders[projectID]; ok {
		return encoder, nil
	}
	payload, err := u.api.Ontology(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tree, err := ontology.Parse(payload)
	if err != nil {
		return nil, err
	}
	index, err := ontology.BuildIndex(tree, u.codec, ontology.Inverse)
	if err != nil {
		return nil, err
	}
	encoder, err := annotate.NewEncoder(index,
		annotate.WithMaskMethod(masks.Method(u.cfg.Annotate.MaskMethod)),
		annotate.WithConfidence(u.cfg.Annotate.Confidence),
	)
	if err != nil {
		return nil, err
	}
	u.encoders[projectID] = encoder
	return encoder, nil
}

// encodeRows converts each row's parsed values into upload records with a
// bounded worker pool. Each worker writes only its own result slot; the
// caller merges. Feature order is sorted so record order is deterministic.
func (u *Uploader) encodeRows(ctx context.Context, rows []*Row, encoderOf func(*Row) *annotate.Encoder, source func(*Row) map[string][]annotate.Value) ([][]annotate.Annotation, error) {
	records := make([][]annotate.Annotation, len(rows))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(u.cfg.Upload.Workers)

	for i, row := range rows {
		i, row := i, row
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			encoder := encoderOf(row)
			features := source(row)
			names := make([]string, 0, len(features))
			for name := range features {
				names = append(names, name)
			}
			sort.Strings(names)

			var out []annotate.Annotation
			for _, name := range names {
				encoded, err := encoder.EncodeAll(row.DataRowID, name, features[name])
				if err != nil {
					return fmt.Errorf("row %q: %w", row.GlobalKey, err)
				}
				out = append(out, encoded...)
			}
			records[i] = out
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// importAnnotations encodes and imports each project's annotations in
// journaled batches. Batches split at row boundaries once the configured
// record count is reached; a failed import halts every remaining batch.
func (u *Uploader) importAnnotations(ctx context.Context, plan *Plan, runName string, result *Result) error {
	grouped, order := groupRows(plan, func(row *Row) string {
		if len(row.Annotations) == 0 {
			return ""
		}
		return row.ProjectID
	})
	for _, row := range plan.Rows {
		if len(row.Annotations) > 0 && row.ProjectID == "" {
			return services.Wrap(services.ErrValidation, "annotations", "plan",
				fmt.Sprintf("row %q carries annotations but no project_id", row.GlobalKey), nil)
		}
	}

	batchNumber := 0
	for _, projectID := range order {
		encoder, err := u.encoderFor(ctx, projectID)
		if err != nil {
			return err
		}
		records, err := u.encodeRows(ctx, grouped[projectID],
			func(*Row) *annotate.Encoder { return encoder },
			func(row *Row) map[string][]annotate.Value { return row.Annotations })
		if err != nil {
			return err
		}

		var pending []annotate.Annotation
		flush := func() error {
			if len(pending) == 0 {
				return nil
			}
			batch := pending
			pending = nil
			batchNumber++
			name := fmt.Sprintf("%s-%d", runName, batchNumber)
			err := u.runBatch(ctx, journal.KindAnnotations, projectID, name, batchNumber, len(batch), func(ctx context.Context) error {
				job, err := u.api.ImportAnnotations(ctx, projectID, name, u.cfg.Upload.ImportMethod, batch)
				if err != nil {
					return err
				}
				status, err := u.api.WaitForJob(ctx, job.ID)
				if err != nil {
					return err
				}
				if status.State == platform.JobStateFailed {
					return jobFailure("annotations", status)
				}
				return nil
			})
			if err != nil {
				return err
			}
			result.AnnotationRecords += len(batch)
			u.logger.Info("annotation batch imported",
				logging.Args(
					logging.String(logging.FieldProjectID, projectID),
					logging.Int(logging.FieldCount, len(batch)),
				)...)
			return nil
		}

		for _, rowRecords := range records {
			if len(pending) > 0 && len(pending)+len(rowRecords) > u.cfg.Upload.AnnotationBatch {
				if err := flush(); err != nil {
					return err
				}
			}
			pending = append(pending, rowRecords...)
		}
		if err := flush(); err != nil {
			return err
		}
	}
	return nil
}

// importPredictions encodes and uploads each model run's predictions.
// Encoding uses the owning project's ontology, so prediction rows must carry
// both model_run_id and project_id.
func (u *Uploader) importPredictions(ctx context.Context, plan *Plan, runName string, result *Result) error {
	grouped, order := groupRows(plan, func(row *Row) string {
		if len(row.Predictions) == 0 {
			return ""
		}
		return row.ModelRunID
	})
	for _, row := range plan.Rows {
		if len(row.Predictions) == 0 {
			continue
		}
		if row.ModelRunID == "" {
			return services.Wrap(services.ErrValidation, "predictions", "plan",
				fmt.Sprintf("row %q carries predictions but no model_run_id", row.GlobalKey), nil)
		}
		if row.ProjectID == "" {
			return services.Wrap(services.ErrValidation, "predictions", "plan",
				fmt.Sprintf("row %q carries predictions but no project_id for ontology lookup", row.GlobalKey), nil)
		}
	}

	sequence := 0
	for _, modelRunID := range order {
		rows := grouped[modelRunID]
		// Warm the encoder cache serially so the concurrent encode pass only
		// reads it.
		for _, row := range rows {
			if _, err := u.encoderFor(ctx, row.ProjectID); err != nil {
				return err
			}
		}

		encoded, err := u.encodeRows(ctx, rows,
			func(row *Row) *annotate.Encoder { return u.encoders[row.ProjectID] },
			func(row *Row) map[string][]annotate.Value { return row.Predictions })
		if err != nil {
			return err
		}
		var records []annotate.Annotation
		for _, rowRecords := range encoded {
			records = append(records, rowRecords...)
		}

		for _, batch := range chunk(records, u.cfg.Upload.AnnotationBatch) {
			sequence++
			name := fmt.Sprintf("%s-predictions-%d", runName, sequence)
			err := u.runBatch(ctx, journal.KindPredictions, modelRunID, name, sequence, len(batch), func(ctx context.Context) error {
				job, err := u.api.AddPredictions(ctx, modelRunID, batch)
				if err != nil {
					return err
				}
				status, err := u.api.WaitForJob(ctx, job.ID)
				if err != nil {
					return err
				}
				if status.State == platform.JobStateFailed {
					return jobFailure("predictions", status)
				}
				return nil
			})
			if err != nil {
				return err
			}
			result.PredictionRecords += len(batch)
		}
	}
	return nil
}

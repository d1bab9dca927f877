package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"labelsheet/internal/table"
	"labelsheet/internal/uploader"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var tablePath, tableName, runName string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a flat annotation table end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			adapter, closeAdapter, err := openAdapter(tablePath, tableName)
			if err != nil {
				return err
			}
			defer closeAdapter()

			client, err := ctx.platformClient()
			if err != nil {
				return err
			}
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			up := uploader.New(client, store, cfg, logger)
			result, err := up.Run(cmd.Context(), adapter, runName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, table.Render(
				[]string{"metric", "count"},
				[][]string{
					{"rows", fmt.Sprintf("%d", result.Rows)},
					{"data_rows_created", fmt.Sprintf("%d", result.DataRowsCreated)},
					{"data_rows_existing", fmt.Sprintf("%d", result.DataRowsExisting)},
					{"project_batches", fmt.Sprintf("%d", result.ProjectBatches)},
					{"annotation_records", fmt.Sprintf("%d", result.AnnotationRecords)},
					{"prediction_records", fmt.Sprintf("%d", result.PredictionRecords)},
					{"model_run_rows", fmt.Sprintf("%d", result.ModelRunRows)},
				},
			))
			fmt.Fprintln(out, okLine("Upload complete", shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().StringVar(&tablePath, "table", "", "Path to the annotation table (.csv or SQLite database)")
	cmd.Flags().StringVar(&tableName, "table-name", "rows", "Table name inside a SQLite database")
	cmd.Flags().StringVar(&runName, "run-name", "", "Name prefix for batches and imports (random when empty)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newGroundTruthCommand(ctx *commandContext) *cobra.Command {
	var modelRunID, projectID string

	cmd := &cobra.Command{
		Use:   "ground-truth",
		Short: "Copy a project's labels into a model run as ground truth",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.platformClient()
			if err != nil {
				return err
			}
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			up := uploader.New(client, store, cfg, logger)
			if err := up.GroundTruth(cmd.Context(), modelRunID, projectID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ground truth from project %s queued into model run %s\n", projectID, modelRunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelRunID, "model-run", "", "Target model run id")
	cmd.Flags().StringVar(&projectID, "project", "", "Source project id")
	_ = cmd.MarkFlagRequired("model-run")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

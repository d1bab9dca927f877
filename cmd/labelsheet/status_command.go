package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"labelsheet/internal/journal"
	"labelsheet/internal/table"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the upload journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if reset {
				requeued, err := store.ResetRunning(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Requeued %d running batches\n", requeued)
			}

			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			if summary.Total == 0 {
				fmt.Fprintln(out, "Journal is empty")
				return nil
			}

			fmt.Fprintln(out, table.Render(
				[]string{"status", "batches"},
				[][]string{
					{"pending", fmt.Sprintf("%d", summary.Pending)},
					{"running", fmt.Sprintf("%d", summary.Running)},
					{"completed", fmt.Sprintf("%d", summary.Completed)},
					{"failed", fmt.Sprintf("%d", summary.Failed)},
					{"review", fmt.Sprintf("%d", summary.Review)},
					{"skipped", fmt.Sprintf("%d", summary.Skipped)},
					{"total", fmt.Sprintf("%d", summary.Total)},
				},
			))

			for _, status := range []journal.Status{journal.StatusFailed, journal.StatusReview} {
				batches, err := store.List(cmd.Context(), status)
				if err != nil {
					return err
				}
				if len(batches) == 0 {
					continue
				}
				rows := make([][]string, 0, len(batches))
				for _, batch := range batches {
					rows = append(rows, []string{
						fmt.Sprintf("%d", batch.ID),
						string(batch.Kind),
						batch.TargetID,
						batch.Name,
						batch.ErrorMessage,
					})
				}
				fmt.Fprintf(out, "\nBatches in %s:\n", status)
				fmt.Fprintln(out, table.Render([]string{"id", "kind", "target", "name", "error"}, rows))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Requeue batches stuck in running back to pending")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"labelsheet/internal/exporter"
	"labelsheet/internal/table"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var projectID, format, outPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project's labels as a flat table",
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

			out := cmd.OutOrStdout()
			if outPath != "" {
				file, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer file.Close()
				out = file
			}

			if format == "coco" {
				return exportCOCO(cmd.Context(), client, cfg, projectID, out)
			}

			memory, err := exporter.New(client, cfg, logger).Export(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			switch format {
			case "table":
				rendered, err := table.RenderAdapter(memory, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, rendered)
				return nil
			case "json":
				rows, err := memory.Rows()
				if err != nil {
					return err
				}
				return writeJSONTo(out, rows)
			case "csv":
				return table.WriteCSV(out, memory)
			default:
				return fmt.Errorf("unknown format %q (expected table, json, csv, or coco)", format)
			}
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id to export")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, csv, or coco")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().IntVar(&limit, "limit", 0, "Render at most this many rows in table format (0 = all)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

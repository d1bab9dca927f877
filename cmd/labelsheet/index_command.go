package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"labelsheet/internal/namepath"
	"labelsheet/internal/ontology"
	"labelsheet/internal/table"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var ontologyPath string
	var inverse, detailed, jsonOut bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Print the feature index of an ontology file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			payload, err := os.ReadFile(ontologyPath)
			if err != nil {
				return fmt.Errorf("read ontology file: %w", err)
			}
			tree, err := ontology.Parse(payload)
			if err != nil {
				return err
			}

			direction := ontology.Forward
			if inverse {
				direction = ontology.Inverse
			}
			index, err := ontology.BuildIndex(tree, namepath.New(cfg.Annotate.Divider), direction)
			if err != nil {
				return err
			}

			if jsonOut {
				if detailed {
					return writeJSON(cmd, orderedEntries(index))
				}
				return writeJSON(cmd, index.Plain())
			}

			out := cmd.OutOrStdout()
			if detailed {
				rows := make([][]string, 0, index.Len())
				for _, entry := range orderedEntries(index) {
					rows = append(rows, []string{
						entry.NamePath,
						string(entry.Kind),
						entry.Type,
						fmt.Sprintf("%d", entry.EncodedValue),
						entry.SchemaID,
					})
				}
				fmt.Fprintln(out, table.Render([]string{"name_path", "kind", "type", "encoded_value", "schema_id"}, rows))
				return nil
			}

			plain := index.Plain()
			rows := make([][]string, 0, index.Len())
			for _, key := range index.Keys() {
				rows = append(rows, []string{key, plain[key]})
			}
			headers := []string{"schema_id", "name_path"}
			if inverse {
				headers = []string{"name_path", "schema_id"}
			}
			fmt.Fprintln(out, table.Render(headers, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&ontologyPath, "ontology", "", "Path to an ontology JSON file")
	cmd.Flags().BoolVar(&inverse, "inverse", false, "Key the index by name path instead of schema id")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Include kind, type, and encoded value per feature")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	_ = cmd.MarkFlagRequired("ontology")
	return cmd
}

func orderedEntries(index *ontology.Index) []ontology.Entry {
	detailed := index.Detailed()
	entries := make([]ontology.Entry, 0, index.Len())
	for _, key := range index.Keys() {
		entries = append(entries, detailed[key])
	}
	return entries
}

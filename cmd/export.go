package cmd

import (
	"fmt"

	"github.com/monty-notes/inkwell/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		outputRoot string
		dest       string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export ingested notes to a dataset file",
		Long: `Aggregates the JSON audit records of previously ingested notes into a
single dataset file for search and analysis tooling.

The output format is inferred from the destination extension: .parquet or
.jsonl.`,
		Example: `  # Export the default output tree to parquet
  inkwell export --dest notes.parquet

  # Export a custom output tree to JSONL
  inkwell export --output data/course-notes --dest notes.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := export.LoadResults(outputRoot)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return fmt.Errorf("no audit records found under %s/notes", outputRoot)
			}

			rows := export.Flatten(results)
			if err := export.Write(rows, dest); err != nil {
				return err
			}

			fmt.Printf("Exported %d notes to %s\n", len(rows), dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputRoot, "output", "o", "data", "Output root containing notes/")
	cmd.Flags().StringVar(&dest, "dest", "notes.parquet", "Destination dataset file (.parquet or .jsonl)")

	return cmd
}

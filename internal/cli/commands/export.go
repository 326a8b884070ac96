package commands

import (
	"fmt"

	"github.com/leapstack-labs/stepcat/internal/export"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var duckdbPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole catalog for analytics",
		Long: fmt.Sprintf(`Write every catalog row into the %s table of a DuckDB database,
replacing earlier exports. A %s view counts readers and writers per table.`,
			export.CatalogTable, export.UsageView),
		Example: `  stepcat export --duckdb catalog.duckdb`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rows, err := cmdCtx.Service.All(cmd.Context())
			if err != nil {
				return err
			}
			n, err := export.ToDuckDB(cmd.Context(), duckdbPath, rows)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("exported %d rows to %s", n, duckdbPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&duckdbPath, "duckdb", "", "Path of the DuckDB database to write")
	_ = cmd.MarkFlagRequired("duckdb")

	return cmd
}

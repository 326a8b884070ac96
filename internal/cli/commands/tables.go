package commands

import (
	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <filename>",
		Short: "Show the table catalog stored for an uploaded file",
		Example: `  stepcat tables clean_orders.yml
  stepcat tables clean_orders.yml -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rows, err := cmdCtx.Service.Tables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderCatalog(cmdCtx.Renderer, rows)
		},
	}
}

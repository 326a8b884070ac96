package commands

import (
	"github.com/spf13/cobra"
)

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lineage <database> <table>",
		Short: "Show which uploaded files read or write a table",
		Example: `  # Who reads or writes raw.orders?
  stepcat lineage raw orders`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rows, err := cmdCtx.Service.Lineage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return renderCatalog(cmdCtx.Renderer, rows)
		},
	}
}

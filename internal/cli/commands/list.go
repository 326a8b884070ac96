package commands

import (
	"time"

	"github.com/leapstack-labs/stepcat/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded configurations",
		Long: `List every uploaded configuration with its step, service and number of
catalogued tables.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: JSON

Use --output to override: auto, text, json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := cmdCtx.Service.List(cmd.Context())
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{"configurations": list})
			}
			data := make([][]any, 0, len(list))
			for _, c := range list {
				data = append(data, []any{c.Filename, c.StepName, c.ServiceName, c.TableCount, c.UploadedAt.Local().Format(time.DateTime)})
			}
			r.Table([]string{"filename", "step_name", "service_name", "tables", "uploaded_at"}, data)
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/stepcat/internal/cli/output"
	"github.com/leapstack-labs/stepcat/internal/loader"
	"github.com/leapstack-labs/stepcat/pkg/core"
	"github.com/leapstack-labs/stepcat/pkg/extract"
	"github.com/spf13/cobra"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the tables a document references without storing anything",
		Example: `  stepcat extract jobs/clean_orders.yml
  stepcat extract jobs/clean_orders.yml --type source -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutStore(cmd)

			step, err := loader.ParseFile(args[0])
			if err != nil {
				return err
			}
			refs := extract.Tables(step.ServiceConfig)
			if kind != "" {
				k, err := core.ParseTableKind(strings.ToLower(kind))
				if err != nil {
					return fmt.Errorf("%w: %v", core.ErrInvalidArgument, err)
				}
				refs = extract.Filter(refs, k)
			}

			r := cmdCtx.Renderer
			sum := extract.Summarize(refs)
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(struct {
					StepName    string          `json:"step_name"`
					ServiceName string          `json:"service_name"`
					Tables      []core.TableRef `json:"tables"`
					Summary     extract.Summary `json:"summary"`
				}{step.StepName, step.ServiceName, refs, sum})
			}

			r.Printf("%s (%s): %d sources, %d targets\n", step.StepName, step.ServiceName, sum.Sources, sum.Targets)
			renderRefs(r, refs)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Only show tables of this type (source|target)")
	_ = cmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(core.KindSource), string(core.KindTarget)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

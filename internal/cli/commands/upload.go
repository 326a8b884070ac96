package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/stepcat/internal/cli/output"
	"github.com/leapstack-labs/stepcat/pkg/core"
	"github.com/spf13/cobra"
)

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload job step documents into the catalog",
		Long: `Parse each document, extract its tables and replace whatever was stored
under the file's base name. A failing file does not stop the others.`,
		Example: `  stepcat upload jobs/clean_orders.yml
  stepcat upload jobs/*.yml -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUpload,
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		results []*core.UploadResult
		errs    []error
	)
	for _, path := range args {
		raw, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", path, err))
			continue
		}
		res, err := cmdCtx.Service.Upload(cmd.Context(), filepath.Base(path), raw)
		if err != nil {
			errs = append(errs, err)
			cmdCtx.Renderer.Warning(err.Error())
			continue
		}
		results = append(results, res)
	}

	if err := renderUploads(cmdCtx.Renderer, results); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func renderUploads(r *output.Renderer, results []*core.UploadResult) error {
	if results == nil {
		results = []*core.UploadResult{}
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}
	data := make([][]any, 0, len(results))
	for _, res := range results {
		data = append(data, []any{res.Filename, res.StepName, res.ServiceName, len(res.Tables), res.Generation})
	}
	r.Table([]string{"filename", "step_name", "service_name", "tables", "generation"}, data)
	return nil
}

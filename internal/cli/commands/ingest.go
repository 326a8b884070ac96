package commands

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/stepcat/internal/cli/output"
	"github.com/leapstack-labs/stepcat/internal/ingest"
	"github.com/spf13/cobra"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	var (
		watch       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Upload every YAML document in a directory",
		Long: `Upload every *.yml and *.yaml file directly inside a directory. With
--watch, keep running and re-upload documents as they are written.`,
		Example: `  stepcat ingest ./jobs
  stepcat ingest ./jobs --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			r := cmdCtx.Renderer
			opts := ingest.Options{Logger: cmdCtx.Logger, Concurrency: concurrency}

			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				opts.OnResult = func(res ingest.Result) {
					if res.Err != nil {
						r.Warning(res.Err.Error())
						return
					}
					r.Success("uploaded " + res.Upload.Filename)
				}
				return ingest.Watch(ctx, cmdCtx.Service, args[0], opts)
			}

			results, err := ingest.Dir(cmd.Context(), cmdCtx.Service, args[0], opts)
			if err != nil {
				return err
			}
			return renderIngest(r, results)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and re-upload changed documents")
	cmd.Flags().IntVar(&concurrency, "concurrency", ingest.DefaultConcurrency, "Number of files uploaded in parallel")

	return cmd
}

type ingestEntry struct {
	Path   string `json:"path"`
	Tables int    `json:"tables"`
	Error  string `json:"error,omitempty"`
}

// renderIngest prints one entry per file and returns the joined failures.
func renderIngest(r *output.Renderer, results []ingest.Result) error {
	entries := make([]ingestEntry, 0, len(results))
	var errs []error
	for _, res := range results {
		e := ingestEntry{Path: res.Path}
		if res.Err != nil {
			e.Error = res.Err.Error()
			errs = append(errs, res.Err)
		} else {
			e.Tables = len(res.Upload.Tables)
		}
		entries = append(entries, e)
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(entries); err != nil {
			return err
		}
	} else {
		data := make([][]any, 0, len(entries))
		for _, e := range entries {
			status := "ok"
			if e.Error != "" {
				status = e.Error
			}
			data = append(data, []any{e.Path, e.Tables, status})
		}
		r.Table([]string{"path", "tables", "status"}, data)
	}
	return errors.Join(errs...)
}

package commands

import (
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/stepcat/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP API",
		Long: `Start the HTTP API for uploading job step documents and querying the
table catalog. The server stops gracefully on SIGINT or SIGTERM.`,
		Example: `  # Serve on the default address (:8000)
  stepcat serve

  # Serve on another port backed by postgres
  stepcat serve --addr :9000 --store-type postgres --dsn postgres://localhost/stepcat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Service:         cmdCtx.Service,
				Addr:            cmdCtx.Cfg.Server.Addr,
				MaxUploadBytes:  cmdCtx.Cfg.Server.MaxUploadBytes,
				ShutdownTimeout: cmdCtx.Cfg.Server.ShutdownTimeout,
				Logger:          cmdCtx.Logger,
			})
			cmdCtx.Renderer.Success("listening on " + cmdCtx.Cfg.Server.Addr)
			return srv.Serve(ctx)
		},
	}
}

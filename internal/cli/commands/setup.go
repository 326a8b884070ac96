package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/stepcat/internal/catalog"
	"github.com/leapstack-labs/stepcat/internal/cli/config"
	"github.com/leapstack-labs/stepcat/internal/cli/output"
	"github.com/leapstack-labs/stepcat/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Service  *catalog.Service
	Renderer *output.Renderer
}

// NewCommandContext opens the configured store and builds the catalog
// service. The returned cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutStore(cmd)

	store, err := state.Open(cmd.Context(), cmdCtx.Cfg.Store.StateConfig(), cmdCtx.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog store: %w", err)
	}

	svc, err := catalog.New(catalog.Config{
		Store:     store,
		Logger:    cmdCtx.Logger,
		CacheSize: cmdCtx.Cfg.Cache.Size,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	cmdCtx.Service = svc

	cleanup := func() {
		if err := store.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close store", slog.String("error", err.Error()))
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a store.
// Useful for commands that don't need database access.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or the defaults when the
// command runs outside the root command.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

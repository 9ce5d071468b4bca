package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/fieldscale/takt/internal/app"
	mcpinternal "github.com/fieldscale/takt/internal/mcp"
	"github.com/fieldscale/takt/internal/shared/infrastructure/database"
	"github.com/fieldscale/takt/pkg/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := newServerLogger(cmd.ErrOrStderr(), cfg.IsDevelopment())

		container, err := newContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		cliApp := mcpinternal.NewCLIApp(container)
		err = mcpinternal.Serve(ctx, cfg, cliApp, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func newContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.Container, error) {
	if database.Driver(cfg.DatabaseDriver) == database.DriverPostgres {
		return app.NewContainer(ctx, cfg, logger)
	}
	return app.NewLocalContainer(ctx, cfg, logger)
}

func newServerLogger(out io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}

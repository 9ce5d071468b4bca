package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldscale/takt/adapter/api"
	"github.com/fieldscale/takt/internal/app"
	"github.com/fieldscale/takt/internal/shared/infrastructure/database"
	"github.com/fieldscale/takt/pkg/config"
	"github.com/fieldscale/takt/pkg/observability"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the JSON HTTP API.

The server exposes project import, plan runs, and plan reads under
/api/v1, plus /healthz and /readyz probes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.APIAddr = serveAddr
		}

		logCfg := observability.DefaultLogConfig()
		if !cfg.IsDevelopment() {
			logCfg = observability.ProductionLogConfig()
		}
		logCfg.ServiceName = "takt-api"
		logCfg.ServiceVersion = Version
		srvLogger := observability.NewLogger(logCfg)

		container, err := newServeContainer(ctx, cfg, srvLogger)
		if err != nil {
			return err
		}
		defer container.Close()

		if cfg.OutboxProcessorEnabled && container.OutboxProcessor != nil {
			go container.OutboxProcessor.Start(ctx)
		}

		projects := api.NewProjectHandler(api.ProjectHandlerConfig{
			ImportProject: container.ImportProjectHandler,
			DeleteProject: container.DeleteProjectHandler,
			ListProjects:  container.ListProjectsHandler,
			GetProject:    container.GetProjectHandler,
			Logger:        srvLogger,
		})
		plans := api.NewPlanHandler(api.PlanHandlerConfig{
			RunPlan:         container.RunPlanHandler,
			GetLatestPlan:   container.GetLatestPlanHandler,
			GetCriticalPath: container.GetCriticalPathHandler,
			Logger:          srvLogger,
		})

		serverCfg := api.DefaultServerConfig()
		serverCfg.Addr = cfg.APIAddr
		server := api.NewServer(serverCfg, projects, plans, container.Health, srvLogger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

func newServeContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.Container, error) {
	if database.Driver(cfg.DatabaseDriver) == database.DriverPostgres {
		return app.NewContainer(ctx, cfg, logger)
	}
	return app.NewLocalContainer(ctx, cfg, logger)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port), overrides TAKT_API_ADDR")
	rootCmd.AddCommand(serveCmd)
}

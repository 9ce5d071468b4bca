package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/adapter/cli/mcp"
	"github.com/fieldscale/takt/adapter/cli/project"
	"github.com/fieldscale/takt/adapter/cli/schedule"
	"github.com/fieldscale/takt/internal/app"
	"github.com/fieldscale/takt/internal/shared/infrastructure/database"
	"github.com/fieldscale/takt/pkg/config"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// In development without .env, use defaults
		logger.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	// Update logger level based on config
	if cfg.IsDevelopment() {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	cli.SetLogger(logger)

	// Initialize the container for the configured driver
	var cliApp *cli.App
	container, err := newContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
			// In development, allow CLI to run without database
			cliApp = nil
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()

		// Relay outbox events in-process. Server deployments run the
		// dedicated worker binary instead.
		if cfg.OutboxProcessorEnabled && container.OutboxProcessor != nil {
			go container.OutboxProcessor.Start(ctx)
		} else {
			logger.Info("outbox processor disabled in CLI")
		}

		// Create CLI app with handlers
		cliApp = cli.NewApp(
			container.ImportProjectHandler,
			container.ValidateProjectHandler,
			container.DeleteProjectHandler,
			container.ListProjectsHandler,
			container.GetProjectHandler,
			container.RunPlanHandler,
			container.PreviewPlanHandler,
			container.GetLatestPlanHandler,
			container.GetCriticalPathHandler,
		)

		if container.Publisher != nil {
			cliApp.SetPublisher(container.Publisher)
		}
		if container.Exporter != nil {
			cliApp.SetExporter(container.Exporter)
		}
		if container.Health != nil {
			cliApp.SetHealth(container.Health)
		}
	}

	// Set the CLI app
	cli.SetApp(cliApp)

	// Register commands
	cli.AddCommand(project.Cmd)
	cli.AddCommand(schedule.Cmd)
	cli.AddCommand(mcp.Cmd)

	// Execute CLI
	cli.Execute()
}

// newContainer picks the container for the configured driver: SQLite for
// single-binary installs, PostgreSQL for shared deployments.
func newContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.Container, error) {
	if database.Driver(cfg.DatabaseDriver) == database.DriverPostgres {
		return app.NewContainer(ctx, cfg, logger)
	}
	return app.NewLocalContainer(ctx, cfg, logger)
}

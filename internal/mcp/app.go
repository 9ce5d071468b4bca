package mcp

import (
	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/internal/app"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container) *cli.App {
	cliApp := cli.NewApp(
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

	return cliApp
}

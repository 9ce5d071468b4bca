package cli

import (
	projectCommands "github.com/fieldscale/takt/internal/project/application/commands"
	projectQueries "github.com/fieldscale/takt/internal/project/application/queries"
	publishingApp "github.com/fieldscale/takt/internal/publishing/application"
	"github.com/fieldscale/takt/internal/publishing/infrastructure/ics"
	scheduleCommands "github.com/fieldscale/takt/internal/scheduling/application/commands"
	scheduleQueries "github.com/fieldscale/takt/internal/scheduling/application/queries"
	"github.com/fieldscale/takt/pkg/observability"
)

// App holds the CLI application dependencies.
type App struct {
	// Project Command Handlers
	ImportProjectHandler   *projectCommands.ImportProjectHandler
	ValidateProjectHandler *projectCommands.ValidateProjectHandler
	DeleteProjectHandler   *projectCommands.DeleteProjectHandler

	// Project Query Handlers
	ListProjectsHandler *projectQueries.ListProjectsHandler
	GetProjectHandler   *projectQueries.GetProjectHandler

	// Plan Command Handlers
	RunPlanHandler     *scheduleCommands.RunPlanHandler
	PreviewPlanHandler *scheduleCommands.PreviewPlanHandler

	// Plan Query Handlers
	GetLatestPlanHandler   *scheduleQueries.GetLatestPlanHandler
	GetCriticalPathHandler *scheduleQueries.GetCriticalPathHandler

	// Calendar publishing (nil unless CalDAV is configured)
	Publisher publishingApp.Publisher

	// ICS export
	Exporter *ics.Exporter

	// Health checks
	Health *observability.HealthRegistry
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	importProjectHandler *projectCommands.ImportProjectHandler,
	validateProjectHandler *projectCommands.ValidateProjectHandler,
	deleteProjectHandler *projectCommands.DeleteProjectHandler,
	listProjectsHandler *projectQueries.ListProjectsHandler,
	getProjectHandler *projectQueries.GetProjectHandler,
	runPlanHandler *scheduleCommands.RunPlanHandler,
	previewPlanHandler *scheduleCommands.PreviewPlanHandler,
	getLatestPlanHandler *scheduleQueries.GetLatestPlanHandler,
	getCriticalPathHandler *scheduleQueries.GetCriticalPathHandler,
) *App {
	return &App{
		ImportProjectHandler:   importProjectHandler,
		ValidateProjectHandler: validateProjectHandler,
		DeleteProjectHandler:   deleteProjectHandler,
		ListProjectsHandler:    listProjectsHandler,
		GetProjectHandler:      getProjectHandler,
		RunPlanHandler:         runPlanHandler,
		PreviewPlanHandler:     previewPlanHandler,
		GetLatestPlanHandler:   getLatestPlanHandler,
		GetCriticalPathHandler: getCriticalPathHandler,
	}
}

// SetPublisher updates the calendar publisher.
func (a *App) SetPublisher(publisher publishingApp.Publisher) {
	a.Publisher = publisher
}

// SetExporter updates the ICS exporter.
func (a *App) SetExporter(exporter *ics.Exporter) {
	a.Exporter = exporter
}

// SetHealth updates the health registry.
func (a *App) SetHealth(health *observability.HealthRegistry) {
	a.Health = health
}

// cliApp is the global CLI application instance. The name leaves "app"
// free for the internal/app import used elsewhere in this package.
var cliApp *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	cliApp = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return cliApp
}

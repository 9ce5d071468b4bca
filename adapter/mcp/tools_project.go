package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	projectQueries "github.com/fieldscale/takt/internal/project/application/queries"
)

type projectShowInput struct {
	ProjectID string `json:"project_id" jsonschema:"required"`
}

type projectListInput struct{}

func registerProjectTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("project.list").
		Description("List stored construction projects").
		Handler(func(ctx context.Context, _ projectListInput) ([]projectQueries.ProjectSummaryDTO, error) {
			if app == nil || app.ListProjectsHandler == nil {
				return nil, errors.New("project listing requires database connection")
			}
			return app.ListProjectsHandler.Handle(ctx, projectQueries.ListProjectsQuery{})
		})

	srv.Tool("project.show").
		Description("Show a stored project with its full definition").
		Handler(func(ctx context.Context, input projectShowInput) (*projectQueries.ProjectDTO, error) {
			if app == nil || app.GetProjectHandler == nil {
				return nil, errors.New("project lookup requires database connection")
			}
			projectID, err := parseUUID(input.ProjectID)
			if err != nil {
				return nil, err
			}
			return app.GetProjectHandler.Handle(ctx, projectQueries.GetProjectQuery{ProjectID: projectID})
		})

	return nil
}

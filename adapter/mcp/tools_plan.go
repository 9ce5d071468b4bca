package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	scheduleCommands "github.com/fieldscale/takt/internal/scheduling/application/commands"
)

type planRunInput struct {
	ProjectID string `json:"project_id" jsonschema:"required"`
}

func registerPlanTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("plan.run").
		Description("Run the scheduling engine over a stored project and persist the plan").
		Handler(func(ctx context.Context, input planRunInput) (*scheduleCommands.RunPlanResult, error) {
			if app == nil || app.RunPlanHandler == nil {
				return nil, errors.New("plan runs require database connection")
			}
			projectID, err := parseUUID(input.ProjectID)
			if err != nil {
				return nil, err
			}
			return app.RunPlanHandler.Handle(ctx, scheduleCommands.RunPlanCommand{ProjectID: projectID})
		})

	return nil
}

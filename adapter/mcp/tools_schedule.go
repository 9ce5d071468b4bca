package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	scheduleQueries "github.com/fieldscale/takt/internal/scheduling/application/queries"
)

type scheduleShowInput struct {
	ProjectID string `json:"project_id" jsonschema:"required"`
}

type scheduleCriticalInput struct {
	ProjectID string `json:"project_id,omitempty"`
	PlanID    string `json:"plan_id,omitempty"`
}

func registerScheduleTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("schedule.show").
		Description("Show the latest computed schedule for a project").
		Handler(func(ctx context.Context, input scheduleShowInput) (*scheduleQueries.PlanDTO, error) {
			if app == nil || app.GetLatestPlanHandler == nil {
				return nil, errors.New("schedule reads require database connection")
			}
			projectID, err := parseUUID(input.ProjectID)
			if err != nil {
				return nil, err
			}
			return app.GetLatestPlanHandler.Handle(ctx, scheduleQueries.GetLatestPlanQuery{ProjectID: projectID})
		})

	srv.Tool("schedule.critical_path").
		Description("Show the critical tasks of a plan, by plan id or the latest plan of a project").
		Handler(func(ctx context.Context, input scheduleCriticalInput) (*scheduleQueries.CriticalPathDTO, error) {
			if app == nil || app.GetCriticalPathHandler == nil {
				return nil, errors.New("schedule reads require database connection")
			}
			if input.ProjectID == "" && input.PlanID == "" {
				return nil, errors.New("project_id or plan_id is required")
			}

			query := scheduleQueries.GetCriticalPathQuery{}
			if input.PlanID != "" {
				planID, err := parseUUID(input.PlanID)
				if err != nil {
					return nil, err
				}
				query.PlanID = planID
			}
			if input.ProjectID != "" {
				projectID, err := parseUUID(input.ProjectID)
				if err != nil {
					return nil, err
				}
				query.ProjectID = projectID
			}

			return app.GetCriticalPathHandler.Handle(ctx, query)
		})

	return nil
}

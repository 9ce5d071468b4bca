package schedule

import (
	"errors"
	"fmt"

	"github.com/fieldscale/takt/adapter/cli"
	publishingApp "github.com/fieldscale/takt/internal/publishing/application"
	scheduleQueries "github.com/fieldscale/takt/internal/scheduling/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var publishProject string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the latest plan to the configured calendar",
	Long: `Push the latest computed plan to the configured CalDAV calendar.

Events published earlier for the same project are updated in place;
events for tasks no longer in the plan are removed. Foreign entries on
the calendar are never touched.

Examples:
  takt schedule publish --project 6ba7b810-9dad-11d1-80b4-00c04fd430c8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetLatestPlanHandler == nil {
			return errors.New("publish requires database connection")
		}
		if app.Publisher == nil {
			return errors.New("calendar publishing not configured")
		}

		events, err := gatherPlanEvents(cmd, app, publishProject)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No scheduled tasks to publish.")
			return nil
		}

		result, err := app.Publisher.Publish(cmd.Context(), events)
		if err != nil {
			return err
		}

		fmt.Printf("Published events: created=%d updated=%d deleted=%d failed=%d\n", result.Created, result.Updated, result.Deleted, result.Failed)
		return nil
	},
}

func gatherPlanEvents(cmd *cobra.Command, app *cli.App, projectIDStr string) ([]publishingApp.PlanEvent, error) {
	projectID, err := uuid.Parse(projectIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID: %w", err)
	}

	plan, err := app.GetLatestPlanHandler.Handle(cmd.Context(), scheduleQueries.GetLatestPlanQuery{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	events := make([]publishingApp.PlanEvent, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		events = append(events, publishingApp.PlanEvent{
			TaskID:     task.TaskID,
			Name:       task.Name,
			Discipline: task.Discipline,
			Zone:       task.Zone,
			Floor:      task.Floor,
			StartDate:  task.StartDate,
			EndDate:    task.EndDate,
			Crews:      task.Crews,
			Critical:   task.Critical,
		})
	}
	return events, nil
}

func init() {
	publishCmd.Flags().StringVarP(&publishProject, "project", "p", "", "project ID")
	_ = publishCmd.MarkFlagRequired("project")
}

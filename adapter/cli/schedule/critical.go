package schedule

import (
	"fmt"
	"strings"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/internal/scheduling/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	criticalProject string
	criticalPlan    string
)

var criticalCmd = &cobra.Command{
	Use:   "critical",
	Short: "Show the critical path of a plan",
	Long: `Display the zero-float tasks of a plan in start order. Any slip
in these tasks moves the project end date.

Addresses the latest plan of a project, or a specific plan by ID.

Examples:
  takt schedule critical --project 6ba7b810-9dad-11d1-80b4-00c04fd430c8
  takt schedule critical --plan 550e8400-e29b-41d4-a716-446655440000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetCriticalPathHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		if criticalProject == "" && criticalPlan == "" {
			return fmt.Errorf("either --project or --plan is required")
		}

		query := queries.GetCriticalPathQuery{}
		if criticalPlan != "" {
			planID, err := uuid.Parse(criticalPlan)
			if err != nil {
				return fmt.Errorf("invalid plan ID: %w", err)
			}
			query.PlanID = planID
		} else {
			projectID, err := uuid.Parse(criticalProject)
			if err != nil {
				return fmt.Errorf("invalid project ID: %w", err)
			}
			query.ProjectID = projectID
		}

		result, err := app.GetCriticalPathHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to get critical path: %w", err)
		}

		fmt.Printf("Critical path for plan %s\n", result.PlanID)
		fmt.Println(strings.Repeat("=", 60))

		if len(result.Tasks) == 0 {
			fmt.Println("\n  No critical tasks recorded for this plan.")
			return nil
		}

		for _, task := range result.Tasks {
			fmt.Printf("%s - %s  %-24s %s F%d\n",
				task.StartDate.Format("2006-01-02"),
				task.EndDate.Format("2006-01-02"),
				task.Name,
				task.Zone,
				task.Floor,
			)
		}

		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("Critical tasks: %d | Plan: %s - %s\n",
			len(result.Tasks),
			result.StartDate.Format("2006-01-02"),
			result.EndDate.Format("2006-01-02"),
		)

		return nil
	},
}

func init() {
	criticalCmd.Flags().StringVarP(&criticalProject, "project", "p", "", "project ID (latest plan)")
	criticalCmd.Flags().StringVar(&criticalPlan, "plan", "", "plan ID")
}

package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/internal/scheduling/application/queries"
	"github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var showProject string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest plan for a project",
	Long: `Display the latest computed plan for a project: every task with
its dates, location, and crew allocation. Critical tasks are marked
with an asterisk.

Examples:
  takt schedule show --project 6ba7b810-9dad-11d1-80b4-00c04fd430c8`,
	Aliases: []string{"view"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetLatestPlanHandler == nil {
			fmt.Println("Schedule viewing requires database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		projectID, err := uuid.Parse(showProject)
		if err != nil {
			return fmt.Errorf("invalid project ID: %w", err)
		}

		plan, err := app.GetLatestPlanHandler.Handle(cmd.Context(), queries.GetLatestPlanQuery{ProjectID: projectID})
		if err != nil {
			if errors.Is(err, domain.ErrPlanNotFound) {
				fmt.Println("No plan computed for this project yet.")
				fmt.Println("Run 'takt plan run --project <id>' first.")
				return nil
			}
			return fmt.Errorf("failed to get plan: %w", err)
		}

		fmt.Printf("Plan %s (computed %s)\n", plan.ID, plan.ComputedAt.Format("2006-01-02 15:04"))
		fmt.Println(strings.Repeat("=", 60))

		critical := 0
		for _, task := range plan.Tasks {
			marker := " "
			if task.Critical {
				marker = "*"
				critical++
			}
			fmt.Printf("%s %s - %s  %-24s %s F%d  %d crews\n",
				marker,
				task.StartDate.Format("2006-01-02"),
				task.EndDate.Format("2006-01-02"),
				task.Name,
				task.Zone,
				task.Floor,
				task.Crews,
			)
		}

		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("Total: %d tasks | Critical: %d\n", len(plan.Tasks), critical)
		fmt.Printf("Dates: %s - %s\n", plan.StartDate.Format("2006-01-02"), plan.EndDate.Format("2006-01-02"))

		return nil
	},
}

func init() {
	showCmd.Flags().StringVarP(&showProject, "project", "p", "", "project ID")
	_ = showCmd.MarkFlagRequired("project")
}

package project

import (
	"fmt"
	"strings"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/internal/project/application/queries"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored projects",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListProjectsHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projects, err := app.ListProjectsHandler.Handle(cmd.Context(), queries.ListProjectsQuery{})
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		fmt.Printf("Projects (%d):\n", len(projects))
		fmt.Println(strings.Repeat("-", 60))

		for _, p := range projects {
			fmt.Printf("%s  %s\n", p.ID, p.Name)
			fmt.Printf("   Start: %s | Zones: %d | Tasks: %d\n",
				p.StartDate.Format("2006-01-02"), p.ZoneCount, p.TaskCount)
			if len(p.Disciplines) > 0 {
				fmt.Printf("   Disciplines: %s\n", strings.Join(p.Disciplines, ", "))
			}
			fmt.Println()
		}

		return nil
	},
}

package project

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/internal/project/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a stored project",
	Long: `Show a stored project with its definition summary.

Examples:
  takt project show 6ba7b810-9dad-11d1-80b4-00c04fd430c8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetProjectHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project ID: %w", err)
		}

		ctx := cmd.Context()
		project, err := app.GetProjectHandler.Handle(ctx, queries.GetProjectQuery{ProjectID: projectID})
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}

		fmt.Printf("Project: %s\n", project.Name)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("  ID:          %s\n", project.ID)
		fmt.Printf("  Start date:  %s\n", project.StartDate.Format("2006-01-02"))
		fmt.Printf("  Zones:       %d\n", project.ZoneCount)
		fmt.Printf("  Tasks:       %d\n", project.TaskCount)
		fmt.Printf("  Disciplines: %s\n", strings.Join(project.Disciplines, ", "))
		fmt.Printf("  Created:     %s\n", project.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("  Updated:     %s\n", project.UpdatedAt.Format("2006-01-02 15:04"))

		if len(project.Definition.Zones) > 0 {
			fmt.Println()
			fmt.Println("  ZONES")
			names := make([]string, 0, len(project.Definition.Zones))
			for name := range project.Definition.Zones {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("    %-16s %d floors\n", name, project.Definition.Zones[name])
			}
		}

		return nil
	},
}

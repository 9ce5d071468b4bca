package project

import (
	"fmt"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/internal/project/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [project-id]",
	Short: "Delete a project and its plans",
	Long: `Delete a stored project by its ID. Every plan computed for the
project is removed with it.

Examples:
  takt project delete 6ba7b810-9dad-11d1-80b4-00c04fd430c8`,
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DeleteProjectHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project ID: %w", err)
		}

		ctx := cmd.Context()
		if err := app.DeleteProjectHandler.Handle(ctx, commands.DeleteProjectCommand{ProjectID: projectID}); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}

		fmt.Printf("Project deleted: %s\n", projectID)
		return nil
	},
}

package project

import (
	"fmt"
	"strings"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/internal/project/application/commands"
	"github.com/fieldscale/takt/internal/project/infrastructure/definition"
	"github.com/spf13/cobra"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a project definition",
	Long: `Import a YAML project definition and store it.

The definition is fully validated before anything is written; a file
the engine could not schedule is rejected here.

Examples:
  takt project import -f site.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ImportProjectHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		if importFile == "" {
			return fmt.Errorf("definition file is required (-f)")
		}

		doc, err := definition.Load(importFile)
		if err != nil {
			return err
		}

		result, err := app.ImportProjectHandler.Handle(cmd.Context(), commands.ImportProjectCommand{Document: doc})
		if err != nil {
			return fmt.Errorf("failed to import project: %w", err)
		}

		fmt.Printf("Project imported: %s\n", result.ProjectID)
		fmt.Printf("  name:        %s\n", result.Name)
		fmt.Printf("  start date:  %s\n", result.StartDate.Format("2006-01-02"))
		fmt.Printf("  zones:       %d\n", result.ZoneCount)
		fmt.Printf("  tasks:       %d\n", result.TaskCount)
		fmt.Printf("  disciplines: %s\n", strings.Join(result.Disciplines, ", "))

		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "definition file (YAML)")
}

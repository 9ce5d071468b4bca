package project

import (
	"fmt"
	"strings"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/fieldscale/takt/internal/project/application/commands"
	"github.com/fieldscale/takt/internal/project/infrastructure/definition"
	"github.com/spf13/cobra"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a project definition without storing it",
	Long: `Validate a project definition file.

The definition is parsed and expanded into task instances the same way
an import would, so structural errors and expansion errors (unknown
predecessors, bad zone groups) both surface. Nothing is stored.

Examples:
  takt project validate -f site.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ValidateProjectHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		if validateFile == "" {
			return fmt.Errorf("definition file is required (-f)")
		}

		doc, err := definition.Load(validateFile)
		if err != nil {
			return fmt.Errorf("failed to load definition: %w", err)
		}

		ctx := cmd.Context()
		result, err := app.ValidateProjectHandler.Handle(ctx, commands.ValidateProjectCommand{Document: doc})
		if err != nil {
			return fmt.Errorf("definition is invalid: %w", err)
		}

		fmt.Printf("Definition is valid: %s\n", result.Name)
		fmt.Printf("  Start date:  %s\n", result.StartDate.Format("2006-01-02"))
		fmt.Printf("  Zones:       %d (%d floors)\n", result.ZoneCount, result.TotalFloors)
		fmt.Printf("  Base tasks:  %d\n", result.TaskCount)
		fmt.Printf("  Instances:   %d\n", result.InstanceCount)
		fmt.Printf("  Disciplines: %s\n", strings.Join(result.Disciplines, ", "))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "definition file (YAML)")
}

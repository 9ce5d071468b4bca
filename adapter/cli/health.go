package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fieldscale/takt/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run health checks against the configured backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		if app.Health == nil {
			fmt.Println("ok (no backends configured)")
			return nil
		}

		results := app.Health.Check(cmd.Context())

		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("HEALTH")
		fmt.Println(strings.Repeat("=", 60))
		for _, name := range names {
			result := results[name]
			fmt.Printf("  %-12s %-10s %s\n", name, result.Status, result.Message)
		}
		fmt.Println(strings.Repeat("-", 60))

		overall := app.Health.OverallStatus()
		fmt.Printf("Overall: %s\n", overall)
		if overall == observability.HealthStatusUnhealthy {
			return fmt.Errorf("health check failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// Package schedule holds the takt schedule commands: viewing computed
// plans and pushing them to calendars.
package schedule

import (
	"github.com/spf13/cobra"
)

// Cmd is the schedule command group
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Work with computed plans",
	Long:  `View computed plans, inspect the critical path, and publish schedules to calendars.`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(criticalCmd)
	Cmd.AddCommand(exportCmd)
	Cmd.AddCommand(publishCmd)
}

package schedule

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/fieldscale/takt/adapter/cli"
	"github.com/spf13/cobra"
)

var (
	exportProject string
	exportOutput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the latest plan as an ICS file",
	Long: `Export the latest computed plan to ICS (iCalendar) format for
import into Google Calendar, Outlook, Apple Calendar, and other
calendar apps. Each task becomes one all-day event.

Examples:
  takt schedule export --project 6ba7b810-...              # Export to stdout
  takt schedule export --project 6ba7b810-... -o plan.ics  # Export to file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetLatestPlanHandler == nil {
			fmt.Println("Export requires database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}
		if app.Exporter == nil {
			return errors.New("exporter not configured")
		}

		events, err := gatherPlanEvents(cmd, app, exportProject)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(os.Stderr, "No scheduled tasks to export.")
			return nil
		}

		var buf bytes.Buffer
		if err := app.Exporter.Export(&buf, events); err != nil {
			return err
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, buf.Bytes(), 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Exported %d events to %s\n", len(events), exportOutput)
		} else {
			fmt.Print(buf.String())
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportProject, "project", "p", "", "project ID")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	_ = exportCmd.MarkFlagRequired("project")
}

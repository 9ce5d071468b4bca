package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fieldscale/takt/internal/project/infrastructure/definition"
	"github.com/fieldscale/takt/internal/scheduling/application/commands"
	scheduleQueries "github.com/fieldscale/takt/internal/scheduling/application/queries"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	planProject string
	planFile    string
	planWatch   bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute schedules",
	Long:  `Run the scheduling engine over a stored project or a definition file.`,
}

var planRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduling engine",
	Long: `Run the scheduling engine and print the resulting schedule.

With --project the stored definition is scheduled and the plan is
persisted. With --file the engine runs over the file without storing
anything, which is useful while editing a definition. Use --watch to
re-run the preview on every save.

Examples:
  takt plan run --project 6ba7b810-9dad-11d1-80b4-00c04fd430c8
  takt plan run -f site.yaml
  takt plan run -f site.yaml --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			fmt.Println("Planning requires the engine to be initialized.")
			fmt.Println("Check the configuration or start services with: docker-compose up -d")
			return nil
		}

		if planProject != "" && planFile != "" {
			return fmt.Errorf("use either --project or --file, not both")
		}
		if planWatch && planFile == "" {
			return fmt.Errorf("--watch requires a definition file (-f)")
		}

		if planProject != "" {
			return runStoredPlan(cmd, app, planProject)
		}
		if planFile != "" {
			if err := previewFromFile(cmd, app, planFile); err != nil {
				if !planWatch {
					return err
				}
				// In watch mode a broken first run is not fatal; the
				// next save gets another chance.
				fmt.Printf("Run failed: %v\n", err)
			}
			if planWatch {
				return watchDefinition(cmd, app, planFile)
			}
			return nil
		}

		return fmt.Errorf("either --project or --file is required")
	},
}

func runStoredPlan(cmd *cobra.Command, app *App, projectID string) error {
	if app.RunPlanHandler == nil || app.GetLatestPlanHandler == nil {
		return fmt.Errorf("planning requires database connection")
	}

	id, err := uuid.Parse(projectID)
	if err != nil {
		return fmt.Errorf("invalid project ID: %w", err)
	}

	result, err := app.RunPlanHandler.Handle(cmd.Context(), commands.RunPlanCommand{ProjectID: id})
	if err != nil {
		return fmt.Errorf("failed to run plan: %w", err)
	}

	plan, err := app.GetLatestPlanHandler.Handle(cmd.Context(), scheduleQueries.GetLatestPlanQuery{ProjectID: id})
	if err != nil {
		return fmt.Errorf("failed to load computed plan: %w", err)
	}

	fmt.Println()
	fmt.Printf("  PLAN: %s\n", result.PlanID)
	fmt.Println(strings.Repeat("=", 60))

	printScheduleTable(plan.Tasks)
	printCriticalPaths(result.CriticalPaths)
	printPlanSummary(result.StartDate, result.EndDate, result.ProjectDuration, plan.Tasks)

	return nil
}

func previewFromFile(cmd *cobra.Command, app *App, path string) error {
	if app.PreviewPlanHandler == nil {
		return fmt.Errorf("planning requires the engine to be initialized")
	}

	doc, err := definition.Load(path)
	if err != nil {
		return err
	}

	result, err := app.PreviewPlanHandler.Handle(cmd.Context(), commands.PreviewPlanCommand{Document: doc})
	if err != nil {
		return err
	}

	tasks := make([]scheduleQueries.ScheduledTaskDTO, len(result.Tasks))
	for i, task := range result.Tasks {
		tasks[i] = scheduleQueries.ScheduledTaskDTO{
			TaskID:    task.TaskID,
			Name:      task.Name,
			Zone:      task.Zone,
			Floor:     task.Floor,
			StartDate: task.StartDate,
			EndDate:   task.EndDate,
			Crews:     task.Crews,
			Critical:  task.Critical,
		}
	}

	fmt.Println()
	fmt.Printf("  PREVIEW: %s (nothing stored)\n", result.Name)
	fmt.Println(strings.Repeat("=", 60))

	printScheduleTable(tasks)
	printCriticalPaths(result.CriticalPaths)
	printPlanSummary(result.StartDate, result.EndDate, result.ProjectDuration, tasks)

	return nil
}

// watchDefinition re-runs the preview whenever the definition file
// changes. The watch is on the directory: editors replace files on
// save, which drops a watch registered on the file itself.
func watchDefinition(cmd *cobra.Command, app *App, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Printf("Watching %s (ctrl-c to stop)\n", path)

	var lastRun time.Time
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Editors fire several events per save.
			if time.Since(lastRun) < 200*time.Millisecond {
				continue
			}
			lastRun = time.Now()
			if err := previewFromFile(cmd, app, path); err != nil {
				fmt.Printf("Run failed: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

func printScheduleTable(tasks []scheduleQueries.ScheduledTaskDTO) {
	fmt.Println("\n  SCHEDULE")
	fmt.Println(strings.Repeat("-", 60))

	if len(tasks) == 0 {
		fmt.Println("    No tasks scheduled.")
		return
	}

	for _, task := range tasks {
		marker := " "
		if task.Critical {
			marker = "*"
		}
		fmt.Printf("  %s %s - %s  %-24s %s F%d  %d crews\n",
			marker,
			task.StartDate.Format("2006-01-02"),
			task.EndDate.Format("2006-01-02"),
			task.Name,
			task.Zone,
			task.Floor,
			task.Crews,
		)
	}
}

func printCriticalPaths(paths [][]string) {
	if len(paths) == 0 {
		return
	}

	fmt.Println("\n  CRITICAL PATH")
	fmt.Println(strings.Repeat("-", 60))
	for _, path := range paths {
		fmt.Printf("    %s\n", strings.Join(path, " -> "))
	}
}

func printPlanSummary(start, end time.Time, duration int, tasks []scheduleQueries.ScheduledTaskDTO) {
	critical := 0
	for _, task := range tasks {
		if task.Critical {
			critical++
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Makespan: %d workdays (%s - %s)\n",
		duration,
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
	)
	fmt.Printf("Tasks: %d | Critical: %d\n", len(tasks), critical)
	fmt.Println()
}

func init() {
	planRunCmd.Flags().StringVarP(&planProject, "project", "p", "", "stored project ID to schedule")
	planRunCmd.Flags().StringVarP(&planFile, "file", "f", "", "definition file to preview (YAML)")
	planRunCmd.Flags().BoolVarP(&planWatch, "watch", "w", false, "re-run the preview on file changes")
	planCmd.AddCommand(planRunCmd)
	rootCmd.AddCommand(planCmd)
}

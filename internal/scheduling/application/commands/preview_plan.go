package commands

import (
	"context"
	"log/slog"
	"time"

	projectDomain "github.com/fieldscale/takt/internal/project/domain"
	"github.com/fieldscale/takt/internal/scheduling/application/services"
	"github.com/fieldscale/takt/internal/scheduling/domain"
)

// PreviewPlanCommand runs the engine over a definition document without
// touching storage. Used for dry runs and watch mode.
type PreviewPlanCommand struct {
	Document projectDomain.Document
}

// PreviewPlanResult carries the computed schedule of a preview run.
type PreviewPlanResult struct {
	Name            string
	StartDate       time.Time
	EndDate         time.Time
	TaskCount       int
	ProjectDuration int
	CriticalPaths   [][]string
	Tasks           []domain.ScheduledTask
}

// PreviewPlanHandler handles the PreviewPlanCommand.
type PreviewPlanHandler struct {
	engine *services.Engine
	logger *slog.Logger
}

// NewPreviewPlanHandler creates a new PreviewPlanHandler.
func NewPreviewPlanHandler(engine *services.Engine, logger *slog.Logger) *PreviewPlanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreviewPlanHandler{engine: engine, logger: logger}
}

// Handle executes the PreviewPlanCommand. The document goes through the
// same parse, validate, and run pipeline as a stored project; only the
// persistence step is skipped.
func (h *PreviewPlanHandler) Handle(ctx context.Context, cmd PreviewPlanCommand) (*PreviewPlanResult, error) {
	name, def, err := cmd.Document.ParseDocument()
	if err != nil {
		return nil, err
	}

	project, err := projectDomain.NewProject(name, def)
	if err != nil {
		return nil, err
	}

	sctx, err := project.SchedulingContext()
	if err != nil {
		return nil, err
	}

	run, err := h.engine.Run(ctx, sctx)
	if err != nil {
		return nil, err
	}

	tasks := toScheduledTasks(run, sctx)
	end := project.StartDate()
	for _, task := range tasks {
		if task.EndDate.After(end) {
			end = task.EndDate
		}
	}

	return &PreviewPlanResult{
		Name:            name,
		StartDate:       project.StartDate(),
		EndDate:         end,
		TaskCount:       len(tasks),
		ProjectDuration: run.ProjectDuration,
		CriticalPaths:   run.CriticalPaths,
		Tasks:           tasks,
	}, nil
}

package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldscale/takt/internal/project/domain"
	"github.com/fieldscale/takt/internal/scheduling/application/services"
)

// ValidateProjectCommand carries a definition document for a dry run:
// full parsing, validation, and instance generation without persistence.
type ValidateProjectCommand struct {
	Document domain.Document
}

// ValidateProjectResult reports what a run over the definition would
// schedule.
type ValidateProjectResult struct {
	Name          string
	StartDate     time.Time
	ZoneCount     int
	TotalFloors   int
	TaskCount     int
	InstanceCount int
	Disciplines   []string
}

// ValidateProjectHandler handles the ValidateProjectCommand.
type ValidateProjectHandler struct {
	generator *services.Generator
}

// NewValidateProjectHandler creates a new ValidateProjectHandler.
func NewValidateProjectHandler(logger *slog.Logger) *ValidateProjectHandler {
	return &ValidateProjectHandler{generator: services.NewGenerator(logger)}
}

// Handle executes the ValidateProjectCommand. Generation runs over the
// parsed context so expansion errors (unknown predecessors, bad zone
// groups) surface in the dry run, not just structural ones.
func (h *ValidateProjectHandler) Handle(ctx context.Context, cmd ValidateProjectCommand) (*ValidateProjectResult, error) {
	name, def, err := cmd.Document.ParseDocument()
	if err != nil {
		return nil, err
	}

	project, err := domain.NewProject(name, def)
	if err != nil {
		return nil, err
	}

	sctx, err := project.SchedulingContext()
	if err != nil {
		return nil, err
	}
	if err := sctx.Validate(); err != nil {
		return nil, err
	}

	instances, err := h.generator.Generate(sctx)
	if err != nil {
		return nil, err
	}

	floors := 0
	for _, f := range def.ZoneFloors {
		floors += f
	}

	return &ValidateProjectResult{
		Name:          name,
		StartDate:     def.StartDate,
		ZoneCount:     len(def.ZoneFloors),
		TotalFloors:   floors,
		TaskCount:     def.TaskCount(),
		InstanceCount: len(instances),
		Disciplines:   def.Disciplines(),
	}, nil
}

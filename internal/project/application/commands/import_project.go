// Package commands contains the project write operations.
package commands

import (
	"context"
	"time"

	"github.com/fieldscale/takt/internal/project/domain"
	sharedApplication "github.com/fieldscale/takt/internal/shared/application"
	"github.com/fieldscale/takt/internal/shared/infrastructure/outbox"
	"github.com/fieldscale/takt/pkg/observability"
	"github.com/google/uuid"
)

// ImportProjectCommand carries a parsed definition document. Imports
// always create a new project; re-importing a file yields a new id.
type ImportProjectCommand struct {
	Document domain.Document
}

// ImportProjectResult summarises the stored project.
type ImportProjectResult struct {
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	ZoneCount   int       `json:"zone_count"`
	TaskCount   int       `json:"task_count"`
	Disciplines []string  `json:"disciplines"`
}

// ImportProjectHandler handles the ImportProjectCommand.
type ImportProjectHandler struct {
	projectRepo domain.Repository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	metrics     observability.Metrics
}

// NewImportProjectHandler creates a new ImportProjectHandler.
func NewImportProjectHandler(
	projectRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	metrics observability.Metrics,
) *ImportProjectHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &ImportProjectHandler{
		projectRepo: projectRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		metrics:     metrics,
	}
}

// Handle executes the ImportProjectCommand. The definition is fully
// validated before anything is written: a document the engine could not
// run is rejected here, not on the first plan.
func (h *ImportProjectHandler) Handle(ctx context.Context, cmd ImportProjectCommand) (*ImportProjectResult, error) {
	name, def, err := cmd.Document.ParseDocument()
	if err != nil {
		return nil, err
	}

	project, err := domain.NewProject(name, def)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.projectRepo.Save(txCtx, project); err != nil {
			return err
		}

		events := project.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx))

		msgs := make([]*outbox.Message, 0, len(events))
		for _, event := range events {
			msg, err := outbox.NewMessage(event)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		return h.outboxRepo.SaveBatch(txCtx, msgs)
	})
	if err != nil {
		return nil, err
	}

	h.metrics.Counter(observability.MetricProjectsImported, 1)

	return &ImportProjectResult{
		ProjectID:   project.ID(),
		Name:        project.Name(),
		StartDate:   project.StartDate(),
		ZoneCount:   len(project.Definition().ZoneFloors),
		TaskCount:   project.Definition().TaskCount(),
		Disciplines: project.Definition().Disciplines(),
	}, nil
}

package commands

import (
	"context"

	"github.com/fieldscale/takt/internal/project/domain"
	schedulingDomain "github.com/fieldscale/takt/internal/scheduling/domain"
	sharedApplication "github.com/fieldscale/takt/internal/shared/application"
	"github.com/google/uuid"
)

// PlanInvalidator drops cached plans for a project.
type PlanInvalidator interface {
	InvalidateProject(ctx context.Context, projectID uuid.UUID) error
}

// DeleteProjectCommand removes a project and every plan computed for it.
type DeleteProjectCommand struct {
	ProjectID uuid.UUID
}

// DeleteProjectHandler handles the DeleteProjectCommand.
type DeleteProjectHandler struct {
	projectRepo domain.Repository
	planRepo    schedulingDomain.PlanRepository
	uow         sharedApplication.UnitOfWork
	cache       PlanInvalidator
}

// NewDeleteProjectHandler creates a new DeleteProjectHandler. cache may
// be nil.
func NewDeleteProjectHandler(
	projectRepo domain.Repository,
	planRepo schedulingDomain.PlanRepository,
	uow sharedApplication.UnitOfWork,
	cache PlanInvalidator,
) *DeleteProjectHandler {
	return &DeleteProjectHandler{
		projectRepo: projectRepo,
		planRepo:    planRepo,
		uow:         uow,
		cache:       cache,
	}
}

// Handle executes the DeleteProjectCommand.
func (h *DeleteProjectHandler) Handle(ctx context.Context, cmd DeleteProjectCommand) error {
	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		project, err := h.projectRepo.FindByID(txCtx, cmd.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return domain.ErrProjectNotFound
		}

		if err := h.planRepo.DeleteByProject(txCtx, cmd.ProjectID); err != nil {
			return err
		}
		return h.projectRepo.Delete(txCtx, cmd.ProjectID)
	})
	if err != nil {
		return err
	}

	if h.cache != nil {
		_ = h.cache.InvalidateProject(ctx, cmd.ProjectID)
	}
	return nil
}

// Package commands contains the scheduling write operations: each
// handler runs the engine or mutates stored plans inside a unit of work
// and stages the resulting domain events on the outbox.
package commands

import (
	"context"
	"log/slog"
	"time"

	projectDomain "github.com/fieldscale/takt/internal/project/domain"
	"github.com/fieldscale/takt/internal/scheduling/application/services"
	"github.com/fieldscale/takt/internal/scheduling/domain"
	sharedApplication "github.com/fieldscale/takt/internal/shared/application"
	"github.com/fieldscale/takt/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// PlanInvalidator drops cached plans for a project. Implemented by the
// Redis plan cache; nil disables invalidation.
type PlanInvalidator interface {
	InvalidateProject(ctx context.Context, projectID uuid.UUID) error
}

// RunPlanCommand requests a fresh scheduling run for a stored project.
type RunPlanCommand struct {
	ProjectID uuid.UUID
}

// RunPlanResult summarises the stored plan.
type RunPlanResult struct {
	PlanID          uuid.UUID  `json:"plan_id"`
	ProjectID       uuid.UUID  `json:"project_id"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	TaskCount       int        `json:"task_count"`
	ProjectDuration int        `json:"project_duration"`
	CriticalPaths   [][]string `json:"critical_paths"`
}

// RunPlanHandler handles the RunPlanCommand.
type RunPlanHandler struct {
	projectRepo projectDomain.Repository
	planRepo    domain.PlanRepository
	engine      *services.Engine
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	cache       PlanInvalidator
	logger      *slog.Logger
}

// NewRunPlanHandler creates a new RunPlanHandler. cache may be nil.
func NewRunPlanHandler(
	projectRepo projectDomain.Repository,
	planRepo domain.PlanRepository,
	engine *services.Engine,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	cache PlanInvalidator,
	logger *slog.Logger,
) *RunPlanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunPlanHandler{
		projectRepo: projectRepo,
		planRepo:    planRepo,
		engine:      engine,
		outboxRepo:  outboxRepo,
		uow:         uow,
		cache:       cache,
		logger:      logger,
	}
}

// Handle executes the RunPlanCommand: it rebuilds the run context from
// the stored definition, runs the engine outside any transaction, then
// persists the plan and its events atomically. The run either yields a
// complete stored plan or leaves the previous plan untouched.
func (h *RunPlanHandler) Handle(ctx context.Context, cmd RunPlanCommand) (*RunPlanResult, error) {
	project, err := h.projectRepo.FindByID(ctx, cmd.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectDomain.ErrProjectNotFound
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
	plan := domain.NewPlan(project.ID(), project.StartDate(), tasks)

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.planRepo.Save(txCtx, plan); err != nil {
			return err
		}

		events := plan.DomainEvents()
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

	// Cache invalidation is best effort: a stale entry expires on its
	// own TTL if the cache is unreachable here.
	if h.cache != nil {
		if err := h.cache.InvalidateProject(ctx, cmd.ProjectID); err != nil {
			h.logger.Warn("plan cache invalidation failed",
				slog.String("project_id", cmd.ProjectID.String()),
				slog.String("error", err.Error()))
		}
	}

	return &RunPlanResult{
		PlanID:          plan.ID(),
		ProjectID:       plan.ProjectID(),
		StartDate:       plan.StartDate(),
		EndDate:         plan.EndDate(),
		TaskCount:       plan.TaskCount(),
		ProjectDuration: run.ProjectDuration,
		CriticalPaths:   run.CriticalPaths,
	}, nil
}

func toScheduledTasks(run *services.RunResult, sctx *domain.SchedulingContext) []domain.ScheduledTask {
	tasks := make([]domain.ScheduledTask, len(run.Tasks))
	for i, inst := range run.Tasks {
		tasks[i] = domain.ScheduledTask{
			TaskID:         inst.ID,
			BaseID:         inst.BaseID,
			Name:           inst.Name,
			Discipline:     inst.Discipline,
			SubDiscipline:  inst.SubDiscipline,
			Zone:           inst.Zone,
			Floor:          inst.Floor,
			StartDate:      inst.StartDate,
			EndDate:        inst.EndDate,
			DurationDays:   sctx.Calendar.WorkdaysBetween(inst.StartDate, inst.EndDate),
			Crews:          inst.AllocatedCrews,
			Equipment:      inst.AllocatedEquipment,
			Predecessors:   inst.Predecessors,
			EarliestStart:  inst.EarliestStart,
			EarliestFinish: inst.EarliestFinish,
			LatestStart:    inst.LatestStart,
			LatestFinish:   inst.LatestFinish,
			TotalFloat:     inst.TotalFloat,
			Critical:       inst.IsCritical(),
		}
	}
	return tasks
}

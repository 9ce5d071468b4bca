package queries

import (
	"context"
	"sort"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/google/uuid"
)

// CriticalPathDTO is a data transfer object for the critical chain of a
// plan: the zero-float tasks in start-date order.
type CriticalPathDTO struct {
	PlanID     uuid.UUID          `json:"plan_id"`
	ProjectID  uuid.UUID          `json:"project_id"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	ComputedAt time.Time          `json:"computed_at"`
	Tasks      []ScheduledTaskDTO `json:"tasks"`
}

// GetCriticalPathQuery addresses a plan either directly by PlanID or,
// when PlanID is nil, by the latest plan of ProjectID.
type GetCriticalPathQuery struct {
	PlanID    uuid.UUID
	ProjectID uuid.UUID
}

// GetCriticalPathHandler handles the GetCriticalPathQuery.
type GetCriticalPathHandler struct {
	planRepo domain.PlanRepository
	latest   *GetLatestPlanHandler
}

// NewGetCriticalPathHandler creates a new GetCriticalPathHandler.
// Latest-plan lookups reuse the cached read path.
func NewGetCriticalPathHandler(planRepo domain.PlanRepository, latest *GetLatestPlanHandler) *GetCriticalPathHandler {
	return &GetCriticalPathHandler{planRepo: planRepo, latest: latest}
}

// Handle executes the GetCriticalPathQuery.
func (h *GetCriticalPathHandler) Handle(ctx context.Context, query GetCriticalPathQuery) (*CriticalPathDTO, error) {
	plan, err := h.loadPlan(ctx, query)
	if err != nil {
		return nil, err
	}

	var critical []ScheduledTaskDTO
	for _, task := range plan.Tasks {
		if task.Critical {
			critical = append(critical, task)
		}
	}
	sort.Slice(critical, func(i, j int) bool {
		if !critical[i].StartDate.Equal(critical[j].StartDate) {
			return critical[i].StartDate.Before(critical[j].StartDate)
		}
		return critical[i].TaskID < critical[j].TaskID
	})

	return &CriticalPathDTO{
		PlanID:     plan.ID,
		ProjectID:  plan.ProjectID,
		StartDate:  plan.StartDate,
		EndDate:    plan.EndDate,
		ComputedAt: plan.ComputedAt,
		Tasks:      critical,
	}, nil
}

func (h *GetCriticalPathHandler) loadPlan(ctx context.Context, query GetCriticalPathQuery) (*PlanDTO, error) {
	if query.PlanID == uuid.Nil {
		return h.latest.Handle(ctx, GetLatestPlanQuery{ProjectID: query.ProjectID})
	}

	plan, err := h.planRepo.FindByID(ctx, query.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	return toPlanDTO(plan), nil
}

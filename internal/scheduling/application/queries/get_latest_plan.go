// Package queries contains the scheduling read operations. Plan reads
// go through the cache when one is wired; the stores stay the source of
// truth and cache failures degrade to plain repository reads.
package queries

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/fieldscale/takt/pkg/observability"
	"github.com/google/uuid"
)

// PlanCache is a read-through cache of the latest plan per project.
// GetLatest returns (nil, nil) on a miss.
type PlanCache interface {
	GetLatest(ctx context.Context, projectID uuid.UUID) (*domain.Plan, error)
	SetLatest(ctx context.Context, plan *domain.Plan) error
}

// ScheduledTaskDTO is a data transfer object for one plan line.
type ScheduledTaskDTO struct {
	TaskID        string         `json:"task_id"`
	BaseID        string         `json:"base_id"`
	Name          string         `json:"name"`
	Discipline    string         `json:"discipline"`
	SubDiscipline string         `json:"sub_discipline,omitempty"`
	Zone          string         `json:"zone"`
	Floor         int            `json:"floor"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
	DurationDays  int            `json:"duration_days"`
	Crews         int            `json:"crews"`
	Equipment     map[string]int `json:"equipment,omitempty"`
	Predecessors  []string       `json:"predecessors,omitempty"`

	EarliestStart  int  `json:"earliest_start"`
	EarliestFinish int  `json:"earliest_finish"`
	LatestStart    int  `json:"latest_start"`
	LatestFinish   int  `json:"latest_finish"`
	TotalFloat     int  `json:"total_float"`
	Critical       bool `json:"critical"`
}

// PlanDTO is a data transfer object for a computed plan.
type PlanDTO struct {
	ID         uuid.UUID          `json:"id"`
	ProjectID  uuid.UUID          `json:"project_id"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	ComputedAt time.Time          `json:"computed_at"`
	TaskCount  int                `json:"task_count"`
	Tasks      []ScheduledTaskDTO `json:"tasks"`
}

// GetLatestPlanQuery contains the parameters for loading the most
// recent plan of a project.
type GetLatestPlanQuery struct {
	ProjectID uuid.UUID
}

// GetLatestPlanHandler handles the GetLatestPlanQuery.
type GetLatestPlanHandler struct {
	planRepo domain.PlanRepository
	cache    PlanCache
	metrics  observability.Metrics
	logger   *slog.Logger
}

// NewGetLatestPlanHandler creates a new GetLatestPlanHandler. cache may
// be nil; metrics and logger fall back to no-op and default.
func NewGetLatestPlanHandler(
	planRepo domain.PlanRepository,
	cache PlanCache,
	metrics observability.Metrics,
	logger *slog.Logger,
) *GetLatestPlanHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLatestPlanHandler{
		planRepo: planRepo,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle executes the GetLatestPlanQuery. A cache error counts as a
// miss; the store answers and the entry is rewritten.
func (h *GetLatestPlanHandler) Handle(ctx context.Context, query GetLatestPlanQuery) (*PlanDTO, error) {
	if h.cache != nil {
		plan, err := h.cache.GetLatest(ctx, query.ProjectID)
		if err != nil {
			h.logger.Warn("plan cache read failed",
				slog.String("project_id", query.ProjectID.String()),
				slog.String("error", err.Error()))
		} else if plan != nil {
			h.metrics.Counter(observability.MetricCacheHits, 1)
			return toPlanDTO(plan), nil
		}
		h.metrics.Counter(observability.MetricCacheMisses, 1)
	}

	plan, err := h.planRepo.FindLatestByProject(ctx, query.ProjectID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	if h.cache != nil {
		if err := h.cache.SetLatest(ctx, plan); err != nil {
			h.logger.Warn("plan cache write failed",
				slog.String("project_id", query.ProjectID.String()),
				slog.String("error", err.Error()))
		}
	}

	return toPlanDTO(plan), nil
}

func toPlanDTO(plan *domain.Plan) *PlanDTO {
	tasks := make([]ScheduledTaskDTO, len(plan.Tasks()))
	for i, task := range plan.Tasks() {
		tasks[i] = toScheduledTaskDTO(task)
	}

	return &PlanDTO{
		ID:         plan.ID(),
		ProjectID:  plan.ProjectID(),
		StartDate:  plan.StartDate(),
		EndDate:    plan.EndDate(),
		ComputedAt: plan.ComputedAt(),
		TaskCount:  plan.TaskCount(),
		Tasks:      tasks,
	}
}

func toScheduledTaskDTO(task domain.ScheduledTask) ScheduledTaskDTO {
	return ScheduledTaskDTO{
		TaskID:         task.TaskID,
		BaseID:         task.BaseID,
		Name:           task.Name,
		Discipline:     task.Discipline,
		SubDiscipline:  task.SubDiscipline,
		Zone:           task.Zone,
		Floor:          task.Floor,
		StartDate:      task.StartDate,
		EndDate:        task.EndDate,
		DurationDays:   task.DurationDays,
		Crews:          task.Crews,
		Equipment:      task.Equipment,
		Predecessors:   task.Predecessors,
		EarliestStart:  task.EarliestStart,
		EarliestFinish: task.EarliestFinish,
		LatestStart:    task.LatestStart,
		LatestFinish:   task.LatestFinish,
		TotalFloat:     task.TotalFloat,
		Critical:       task.Critical,
	}
}

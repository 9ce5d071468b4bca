package domain

import (
	"time"

	sharedDomain "github.com/fieldscale/takt/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateType = "Plan"

	RoutingKeyPlanComputed = "scheduling.plan.computed"
)

// PlanComputed is emitted when a scheduling run completes and a new plan
// is stored for a project.
type PlanComputed struct {
	sharedDomain.BaseEvent
	PlanID    uuid.UUID `json:"plan_id"`
	ProjectID uuid.UUID `json:"project_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	TaskCount int       `json:"task_count"`
}

// NewPlanComputed creates a PlanComputed event from a freshly built plan.
func NewPlanComputed(plan *Plan) PlanComputed {
	return PlanComputed{
		BaseEvent: sharedDomain.NewBaseEvent(plan.ID(), AggregateType, RoutingKeyPlanComputed),
		PlanID:    plan.ID(),
		ProjectID: plan.ProjectID(),
		StartDate: plan.StartDate(),
		EndDate:   plan.EndDate(),
		TaskCount: plan.TaskCount(),
	}
}

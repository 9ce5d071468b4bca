package domain

import (
	"context"

	"github.com/google/uuid"
)

// PlanRepository persists computed plans. Find methods return (nil, nil)
// when nothing matches.
type PlanRepository interface {
	// Save persists the plan and its scheduled tasks.
	Save(ctx context.Context, plan *Plan) error

	// FindByID loads a plan by its id.
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)

	// FindLatestByProject loads the most recently computed plan for a project.
	FindLatestByProject(ctx context.Context, projectID uuid.UUID) (*Plan, error)

	// DeleteByProject removes every plan of a project.
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

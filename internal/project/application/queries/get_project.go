package queries

import (
	"context"
	"time"

	"github.com/fieldscale/takt/internal/project/domain"
	"github.com/google/uuid"
)

// ProjectDTO is a data transfer object for a full project, definition
// included in its external document form.
type ProjectDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	StartDate   time.Time       `json:"start_date"`
	ZoneCount   int             `json:"zone_count"`
	TaskCount   int             `json:"task_count"`
	Disciplines []string        `json:"disciplines"`
	Definition  domain.Document `json:"definition"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GetProjectQuery contains the parameters for loading a project.
type GetProjectQuery struct {
	ProjectID uuid.UUID
}

// GetProjectHandler handles the GetProjectQuery.
type GetProjectHandler struct {
	projectRepo domain.Repository
}

// NewGetProjectHandler creates a new GetProjectHandler.
func NewGetProjectHandler(projectRepo domain.Repository) *GetProjectHandler {
	return &GetProjectHandler{projectRepo: projectRepo}
}

// Handle executes the GetProjectQuery.
func (h *GetProjectHandler) Handle(ctx context.Context, query GetProjectQuery) (*ProjectDTO, error) {
	project, err := h.projectRepo.FindByID(ctx, query.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}

	def := project.Definition()
	return &ProjectDTO{
		ID:          project.ID(),
		Name:        project.Name(),
		StartDate:   project.StartDate(),
		ZoneCount:   len(def.ZoneFloors),
		TaskCount:   def.TaskCount(),
		Disciplines: def.Disciplines(),
		Definition:  project.Document(),
		CreatedAt:   project.CreatedAt(),
		UpdatedAt:   project.UpdatedAt(),
	}, nil
}

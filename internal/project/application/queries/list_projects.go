// Package queries contains the project read operations.
package queries

import (
	"context"
	"time"

	"github.com/fieldscale/takt/internal/project/domain"
	"github.com/google/uuid"
)

// ProjectSummaryDTO is a data transfer object for project listings.
type ProjectSummaryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	ZoneCount   int       `json:"zone_count"`
	TaskCount   int       `json:"task_count"`
	Disciplines []string  `json:"disciplines"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListProjectsQuery has no parameters; all stored projects are listed.
type ListProjectsQuery struct{}

// ListProjectsHandler handles the ListProjectsQuery.
type ListProjectsHandler struct {
	projectRepo domain.Repository
}

// NewListProjectsHandler creates a new ListProjectsHandler.
func NewListProjectsHandler(projectRepo domain.Repository) *ListProjectsHandler {
	return &ListProjectsHandler{projectRepo: projectRepo}
}

// Handle executes the ListProjectsQuery.
func (h *ListProjectsHandler) Handle(ctx context.Context, _ ListProjectsQuery) ([]ProjectSummaryDTO, error) {
	summaries, err := h.projectRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]ProjectSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = ProjectSummaryDTO{
			ID:          s.ID,
			Name:        s.Name,
			StartDate:   s.StartDate,
			ZoneCount:   s.ZoneCount,
			TaskCount:   s.TaskCount,
			Disciplines: s.Disciplines,
			CreatedAt:   s.CreatedAt,
		}
	}
	return dtos, nil
}

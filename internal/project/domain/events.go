package domain

import (
	"time"

	sharedDomain "github.com/fieldscale/takt/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateType = "Project"

	RoutingKeyProjectImported = "project.imported"
)

// ProjectImported is emitted when a definition is ingested and stored.
type ProjectImported struct {
	sharedDomain.BaseEvent
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	ZoneCount int       `json:"zone_count"`
	TaskCount int       `json:"task_count"`
}

// NewProjectImported creates a ProjectImported event for a new project.
func NewProjectImported(p *Project) ProjectImported {
	return ProjectImported{
		BaseEvent: sharedDomain.NewBaseEvent(p.ID(), AggregateType, RoutingKeyProjectImported),
		ProjectID: p.ID(),
		Name:      p.Name(),
		StartDate: p.StartDate(),
		ZoneCount: len(p.Definition().ZoneFloors),
		TaskCount: p.Definition().TaskCount(),
	}
}

// Package domain models a construction project definition: the zone and
// floor grid, the base-task catalogue, resource pools, and the calendar
// and policy configuration a scheduling run consumes.
package domain

import (
	"fmt"
	"time"

	scheduling "github.com/fieldscale/takt/internal/scheduling/domain"
	sharedDomain "github.com/fieldscale/takt/internal/shared/domain"
	"github.com/google/uuid"
)

// Project is a stored site definition. The definition is treated as a
// single value: imports replace it wholesale rather than editing parts.
type Project struct {
	sharedDomain.BaseAggregateRoot
	name       string
	definition Definition
}

// NewProject creates a project from a parsed definition, rejecting
// definitions the engine could not run, and records the ProjectImported
// event.
func NewProject(name string, def Definition) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if len(def.ZoneFloors) == 0 {
		return nil, fmt.Errorf("%w: at least one zone is required", ErrInvalidDefinition)
	}

	// Building and validating a run context up front surfaces catalogue
	// problems at import time instead of on the first run.
	sctx, err := def.SchedulingContext()
	if err != nil {
		return nil, err
	}
	if err := sctx.Validate(); err != nil {
		return nil, err
	}

	p := &Project{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		name:              name,
		definition:        def,
	}
	p.AddDomainEvent(NewProjectImported(p))
	return p, nil
}

// RehydrateProject recreates a project from persisted state without
// validation or events.
func RehydrateProject(
	id uuid.UUID,
	name string,
	def Definition,
	createdAt, updatedAt time.Time,
	version int,
) *Project {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &Project{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(baseEntity, version),
		name:              name,
		definition:        def,
	}
}

func (p *Project) Name() string           { return p.name }
func (p *Project) Definition() Definition { return p.definition }
func (p *Project) StartDate() time.Time   { return p.definition.StartDate }

// SchedulingContext builds a fresh run context from the stored definition.
func (p *Project) SchedulingContext() (*scheduling.SchedulingContext, error) {
	return p.definition.SchedulingContext()
}

// Document returns the project's external definition form.
func (p *Project) Document() Document {
	return BuildDocument(p.name, p.definition)
}
